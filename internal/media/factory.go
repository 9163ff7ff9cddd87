package media

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
)

// PoolAllocator creates the pool for a geometry seen for the first time.
type PoolAllocator func(attrs PoolAttributes) (*Pool, error)

type FactoryOption func(*Factory)

func WithPoolAllocator(alloc PoolAllocator) FactoryOption {
	return func(f *Factory) {
		f.allocate = alloc
	}
}

// WithMaxBuffers bounds every pool the factory creates.
func WithMaxBuffers(n int) FactoryOption {
	return func(f *Factory) {
		f.maxBuffers = n
	}
}

func WithLogger(log logger.Logger) FactoryOption {
	return func(f *Factory) {
		f.log = log
	}
}

// Factory produces frames backed by pooled pixel buffers, keeping one pool
// per canvas geometry for its whole lifetime.
type Factory struct {
	allocate   PoolAllocator
	maxBuffers int
	log        logger.Logger

	mu       sync.Mutex
	pools    map[PoolKey]*Pool
	failures map[PoolKey]int
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		allocate: func(attrs PoolAttributes) (*Pool, error) {
			return NewPool(attrs)
		},
		log:      logger.New("media"),
		pools:    make(map[PoolKey]*Pool),
		failures: make(map[PoolKey]int),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Make returns a frame of width x height stamped with pts and lasting one
// refreshRate period.
func (f *Factory) Make(width, height int, pts Time, refreshRate int) (*Frame, error) {
	errFactory := errors.New()

	pool, err := f.pool(width, height)
	if err != nil {
		f.log.Error().Err(err).Msg("Failed to get pixel buffer pool.")
		return nil, errFactory.Wrap(ErrPoolUnavailable, err)
	}

	buf, err := pool.Get()
	if err != nil {
		f.log.Error().Err(err).
			Int("allocated", pool.Allocated()).
			Msg("Failed to create pixel buffer.")
		return nil, err
	}

	desc, err := NewFormatDescription(buf)
	if err != nil {
		pool.put(buf)
		f.log.Error().Err(err).Msg("Failed to create format description.")
		return nil, errFactory.Wrap(ErrFormatDescription, err)
	}

	timing := TimingInfo{
		Duration:              FrameDuration(refreshRate),
		PresentationTimeStamp: pts,
		DecodeTimeStamp:       pts,
	}

	frame, err := NewFrame(buf, desc, timing)
	if err != nil {
		pool.put(buf)
		f.log.Error().Err(err).
			Str("pts", pts.String()).
			Int("refresh_rate", refreshRate).
			Msg("Failed to create frame.")
		return nil, errFactory.Wrap(ErrFrameAssembly, err)
	}

	return frame, nil
}

// pool returns the cached pool for the geometry, creating it on first use.
// A failed creation is not cached, so the next call tries again.
func (f *Factory) pool(width, height int) (*Pool, error) {
	key := PoolKey{Width: width, Height: height}

	f.mu.Lock()
	defer f.mu.Unlock()

	if pool, ok := f.pools[key]; ok {
		return pool, nil
	}

	pool, err := f.allocate(PoolAttributes{
		Width:                width,
		Height:               height,
		BytesPerRowAlignment: width * PixelFormat32ARGB.BytesPerPixel(),
		PixelFormat:          PixelFormat32ARGB,
		MaxBuffers:           f.maxBuffers,
	})
	if err == nil && pool == nil {
		err = errors.New().New(ErrPoolUnavailable)
	}
	if err != nil {
		f.failures[key]++
		f.log.Warn().Err(err).
			Int("width", width).
			Int("height", height).
			Int("attempt", f.failures[key]).
			Msg("Pixel buffer pool creation failed, will retry on next frame")
		return nil, err
	}

	if n := f.failures[key]; n > 0 {
		f.log.Info().Int("width", width).Int("height", height).Int("failed_attempts", n).
			Msg("Pixel buffer pool created after earlier failures")
		delete(f.failures, key)
	}
	f.pools[key] = pool

	return pool, nil
}

// Pool returns the cached pool for key, if any.
func (f *Factory) Pool(key PoolKey) (*Pool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pool, ok := f.pools[key]
	return pool, ok
}

// Pools is the number of cached pools.
func (f *Factory) Pools() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pools)
}

// PoolFailures is the number of consecutive failed creations for key.
func (f *Factory) PoolFailures(key PoolKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[key]
}
