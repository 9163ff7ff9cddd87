package looper_test

import (
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/looper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n atomic.Int64
}

func (c *counter) Loop(*looper.Looper) { c.n.Add(1) }

func newLooper(t *testing.T, freq int) *looper.Looper {
	t.Helper()
	l, err := looper.New(freq, looper.WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(l.Stop)
	return l
}

func TestNewRejectsOutOfRangeFrequency(t *testing.T) {
	for _, f := range []int{0, -1, -30, looper.MaxFrequency + 1, 2_000_000_000} {
		l, err := looper.New(f)
		assert.Nil(t, l)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, looper.ErrInvalidFrequency))
	}
}

func TestHighestFrequencyHasInterval(t *testing.T) {
	l := newLooper(t, looper.MaxFrequency)
	assert.Equal(t, time.Nanosecond, l.Interval())
}

func TestIntervalAndTolerance(t *testing.T) {
	l := newLooper(t, 30)
	assert.Equal(t, 30, l.Frequency())
	assert.Equal(t, time.Second/30, l.Interval())
	assert.Equal(t, time.Second/300, l.Tolerance())
	assert.False(t, l.IsRunning())
}

func TestTickRate(t *testing.T) {
	l := newLooper(t, 30)
	c := &counter{}
	l.SetDelegate(c)

	l.Run()
	time.Sleep(time.Second)
	l.Stop()

	got := c.n.Load()
	assert.GreaterOrEqual(t, got, int64(27))
	assert.LessOrEqual(t, got, int64(33))
	assert.InDelta(t, float64(got), float64(l.Stats().Ticks), 1)
}

func TestNoTicksAfterStop(t *testing.T) {
	l := newLooper(t, 100)
	c := &counter{}
	l.SetDelegate(c)

	l.Run()
	time.Sleep(100 * time.Millisecond)
	l.Stop()
	assert.False(t, l.IsRunning())

	stopped := c.n.Load()
	assert.Positive(t, stopped)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, stopped, c.n.Load())
}

func TestStopWaitsForDelegateInProgress(t *testing.T) {
	l := newLooper(t, 100)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls atomic.Int64
	l.SetDelegate(looper.DelegateFunc(func(*looper.Looper) {
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release
		}
	}))

	l.Run()
	<-entered

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the delegate was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the delegate finished")
	}

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.Equal(t, int64(1), after)
}

func TestRunTwiceDoesNotDoubleRate(t *testing.T) {
	l := newLooper(t, 50)
	c := &counter{}
	l.SetDelegate(c)

	l.Run()
	l.Run()
	assert.True(t, l.IsRunning())
	time.Sleep(500 * time.Millisecond)
	l.Stop()

	assert.LessOrEqual(t, c.n.Load(), int64(28))
}

func TestStopIsIdempotent(t *testing.T) {
	l := newLooper(t, 50)
	l.Stop()
	l.Run()
	l.Stop()
	l.Stop()
	assert.False(t, l.IsRunning())
}

func TestRestartAfterStop(t *testing.T) {
	l := newLooper(t, 100)
	c := &counter{}
	l.SetDelegate(c)

	l.Run()
	time.Sleep(50 * time.Millisecond)
	l.Stop()
	first := c.n.Load()

	l.Run()
	time.Sleep(50 * time.Millisecond)
	l.Stop()
	assert.Greater(t, c.n.Load(), first)
}

func TestTicksWithoutDelegateAreSkipped(t *testing.T) {
	l := newLooper(t, 100)

	l.Run()
	time.Sleep(60 * time.Millisecond)
	l.Stop()

	stats := l.Stats()
	assert.Positive(t, stats.Ticks)
	assert.Equal(t, stats.Ticks, stats.Skipped)
}

func TestDetachDelegate(t *testing.T) {
	l := newLooper(t, 100)
	c := &counter{}
	l.SetDelegate(c)

	l.Run()
	time.Sleep(50 * time.Millisecond)
	l.SetDelegate(nil)
	detached := c.n.Load()
	time.Sleep(50 * time.Millisecond)
	l.Stop()

	// at most one tick may have been mid-delivery when the delegate was detached
	assert.LessOrEqual(t, c.n.Load(), detached+1)
	assert.Positive(t, l.Stats().Skipped)
}

func TestStopFromDelegate(t *testing.T) {
	l := newLooper(t, 200)
	var n atomic.Int64
	l.SetDelegate(looper.DelegateFunc(func(l *looper.Looper) {
		if n.Add(1) == 3 {
			l.Stop()
		}
	}))

	l.Run()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int64(3), n.Load())
	assert.False(t, l.IsRunning())
}

func TestDelegateCallsAreSequential(t *testing.T) {
	l := newLooper(t, 200)
	var inFlight, overlaps atomic.Int64
	l.SetDelegate(looper.DelegateFunc(func(l *looper.Looper) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
	}))

	l.Run()
	time.Sleep(50 * time.Millisecond)
	l.Stop()
	l.Run()
	time.Sleep(50 * time.Millisecond)
	l.Stop()

	assert.Zero(t, overlaps.Load())
}
