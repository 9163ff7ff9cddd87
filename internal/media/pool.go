package media

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
)

// PoolKey identifies the pool serving one buffer geometry.
type PoolKey struct {
	Width  int
	Height int
}

// PoolAttributes describe the buffers a pool hands out. MaxBuffers of zero
// means unbounded.
type PoolAttributes struct {
	Width                int
	Height               int
	BytesPerRowAlignment int
	PixelFormat          PixelFormat
	MaxBuffers           int
}

// ByteAllocator provides backing storage for new pixel buffers.
type ByteAllocator func(size int) ([]byte, error)

type PoolOption func(*Pool)

// WithByteAllocator replaces the default make([]byte) allocation.
func WithByteAllocator(alloc ByteAllocator) PoolOption {
	return func(p *Pool) {
		p.alloc = alloc
	}
}

// Pool recycles pixel buffers of a single geometry and pixel format.
type Pool struct {
	attrs       PoolAttributes
	bytesPerRow int
	alloc       ByteAllocator

	mu          sync.Mutex
	free        []*PixelBuffer
	allocated   int
	outstanding int
}

// NewPool validates attrs and returns an empty pool.
func NewPool(attrs PoolAttributes, opts ...PoolOption) (*Pool, error) {
	errFactory := errors.New()

	if attrs.Width <= 0 || attrs.Height <= 0 {
		return nil, errFactory.WithData(ErrInvalidGeometry, PoolKey{Width: attrs.Width, Height: attrs.Height})
	}

	bpp := attrs.PixelFormat.BytesPerPixel()
	if bpp == 0 {
		return nil, errFactory.WithData(ErrUnsupportedFormat, attrs.PixelFormat)
	}

	p := &Pool{
		attrs:       attrs,
		bytesPerRow: alignRow(attrs.Width*bpp, attrs.BytesPerRowAlignment),
		alloc: func(size int) ([]byte, error) {
			return make([]byte, size), nil
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Pool) Attributes() PoolAttributes { return p.attrs }
func (p *Pool) BytesPerRow() int           { return p.bytesPerRow }

// Get hands out a free buffer, allocating a new one while under MaxBuffers.
func (p *Pool) Get() (*PixelBuffer, error) {
	errFactory := errors.New()

	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		p.outstanding++
		return buf, nil
	}

	if p.attrs.MaxBuffers > 0 && p.allocated >= p.attrs.MaxBuffers {
		return nil, errFactory.WithData(ErrBufferExhausted, p.attrs.MaxBuffers)
	}

	data, err := p.alloc(p.bytesPerRow * p.attrs.Height)
	if err != nil {
		return nil, errFactory.Wrap(ErrBufferAllocation, err)
	}
	if data == nil {
		return nil, errFactory.New(ErrBufferAllocation)
	}

	p.allocated++
	p.outstanding++

	return &PixelBuffer{
		width:       p.attrs.Width,
		height:      p.attrs.Height,
		bytesPerRow: p.bytesPerRow,
		format:      p.attrs.PixelFormat,
		pool:        p,
		data:        data,
	}, nil
}

func (p *Pool) put(buf *PixelBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outstanding--
	p.free = append(p.free, buf)
}

// Allocated is the number of buffers created by the pool so far.
func (p *Pool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// Outstanding is the number of buffers currently handed out.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

func alignRow(n, alignment int) int {
	if alignment <= 0 || n%alignment == 0 {
		return n
	}
	return (n/alignment + 1) * alignment
}
