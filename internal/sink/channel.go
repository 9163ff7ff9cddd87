package sink

import (
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/pipdrain/internal/media"
)

// Channel forwards a summary of every presented frame to a channel. When the
// reader falls behind, summaries are dropped rather than blocking the clock.
type Channel struct {
	guard orderGuard
	out   chan FrameInfo

	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

func NewChannel(buffer int) *Channel {
	return &Channel{out: make(chan FrameInfo, buffer)}
}

// C returns the summary channel. It is closed by Close.
func (c *Channel) C() <-chan FrameInfo {
	return c.out
}

func (c *Channel) Enqueue(frame *media.Frame) error {
	if frame != nil {
		defer frame.Release()
	}

	if err := c.guard.admit(frame); err != nil {
		return err
	}

	info := Summarize(frame)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.out <- info:
	default:
		c.dropped.Add(1)
	}

	return nil
}

func (c *Channel) Flush() {
	c.guard.flush()
}

func (c *Channel) Status() Status {
	return c.guard.get()
}

func (c *Channel) Close() error {
	if !c.guard.close() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	close(c.out)
	return nil
}

// Dropped is the number of summaries the reader missed.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}
