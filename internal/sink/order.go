package sink

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/media"
)

// orderGuard tracks the sink status and rejects frames whose timestamp goes
// backwards. A rejected frame puts the sink into StatusFailed until Flush.
type orderGuard struct {
	mu     sync.Mutex
	status Status
	last   media.Time
	closed bool
}

func (g *orderGuard) admit(frame *media.Frame) error {
	errFactory := errors.New()

	if frame == nil {
		return errFactory.New(ErrNilFrame)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.closed:
		return errFactory.New(ErrSinkClosed)
	case g.status == StatusFailed:
		return errFactory.New(ErrSinkFailed)
	}

	pts := frame.PresentationTimeStamp()
	if g.last.IsValid() && pts.Compare(g.last) < 0 {
		g.status = StatusFailed
		return errFactory.WithData(ErrOutOfOrder, map[string]string{
			"last": g.last.String(),
			"pts":  pts.String(),
		})
	}

	g.last = pts
	g.status = StatusRendering

	return nil
}

// fail marks the sink failed after a downstream error.
func (g *orderGuard) fail() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = StatusFailed
}

func (g *orderGuard) flush() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.last = media.Time{}
	if g.status == StatusFailed {
		g.status = StatusUnknown
	}
}

func (g *orderGuard) get() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// close reports whether this call closed the guard.
func (g *orderGuard) close() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	g.closed = true
	return true
}
