package media

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
)

// PixelFormat identifies the memory layout of a pixel.
type PixelFormat uint32

// PixelFormat32ARGB stores one byte each of alpha, red, green and blue.
const PixelFormat32ARGB PixelFormat = 0x00000020

func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormat32ARGB:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormat32ARGB:
		return "32ARGB"
	default:
		return "unknown"
	}
}

// LockFlags qualify a base address lock.
type LockFlags uint8

const (
	LockReadWrite LockFlags = 0
	LockReadOnly  LockFlags = 1
)

// PixelBuffer is raw pixel storage drawn from a Pool. The backing bytes are
// only reachable between Lock and Unlock.
type PixelBuffer struct {
	width       int
	height      int
	bytesPerRow int
	format      PixelFormat
	pool        *Pool

	mu    sync.Mutex
	data  []byte
	locks int
}

func (b *PixelBuffer) Width() int               { return b.width }
func (b *PixelBuffer) Height() int              { return b.height }
func (b *PixelBuffer) BytesPerRow() int         { return b.bytesPerRow }
func (b *PixelBuffer) PixelFormat() PixelFormat { return b.format }

// Lock grants access to the base address until the matching Unlock.
func (b *PixelBuffer) Lock(_ LockFlags) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data == nil {
		return errors.New().New(ErrBufferReleased)
	}
	b.locks++

	return nil
}

func (b *PixelBuffer) Unlock(_ LockFlags) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locks == 0 {
		return errors.New().New(ErrBufferNotLocked)
	}
	b.locks--

	return nil
}

func (b *PixelBuffer) IsLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks > 0
}

// BaseAddress returns the pixel bytes, or nil when the buffer is not locked.
// Row r starts at r*BytesPerRow().
func (b *PixelBuffer) BaseAddress() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locks == 0 {
		return nil
	}
	return b.data
}
