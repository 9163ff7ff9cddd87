package usage

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageBetween(t *testing.T) {
	start := time.Unix(1000, 0)

	tests := []struct {
		name string
		prev threadTimes
		cur  threadTimes
		want ThreadBasicInfo
	}{
		{
			name: "half a core",
			prev: threadTimes{busy: 1.0, at: start},
			cur:  threadTimes{busy: 1.05, at: start.Add(100 * time.Millisecond)},
			want: ThreadBasicInfo{CPUUsage: 500},
		},
		{
			name: "no work is idle",
			prev: threadTimes{busy: 2.0, at: start},
			cur:  threadTimes{busy: 2.0, at: start.Add(time.Second)},
			want: ThreadBasicInfo{Flags: FlagIdle},
		},
		{
			name: "clamped to one core",
			prev: threadTimes{busy: 0, at: start},
			cur:  threadTimes{busy: 3, at: start.Add(time.Second)},
			want: ThreadBasicInfo{CPUUsage: UsageScale},
		},
		{
			name: "no elapsed time",
			prev: threadTimes{busy: 0, at: start},
			cur:  threadTimes{busy: 1, at: start},
			want: ThreadBasicInfo{Flags: FlagIdle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usageBetween(tt.prev, tt.cur)
			assert.Equal(t, tt.want.Flags, got.Flags)
			assert.InDelta(t, tt.want.CPUUsage, got.CPUUsage, 1)
		})
	}
}

func TestProcKernelOwnProcess(t *testing.T) {
	k := NewProcKernel(int32(os.Getpid()))
	s := NewSampler(k)

	first, err := s.CurrentUsage()
	if err != nil {
		t.Skipf("process accounting unavailable: %v", err)
	}
	assert.Zero(t, first, "threads seen for the first time report idle")

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
	}

	second, err := s.CurrentUsage()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second, 0.0)
	assert.Zero(t, k.Outstanding())
}

func TestProcKernelUsesPerThreadTimes(t *testing.T) {
	start := time.Unix(1000, 0)
	k := NewProcKernel(1)

	k.current = map[Thread]threadTimes{
		10: {busy: 5.0, at: start},
		11: {busy: 1.0, at: start},
	}
	for _, tid := range []Thread{10, 11} {
		info, err := k.ThreadInfo(tid)
		require.NoError(t, err)
		assert.True(t, info.Idle(), "first observation of %d", tid)
	}

	later := start.Add(time.Second)
	k.current = map[Thread]threadTimes{
		10: {busy: 5.9, at: later},
		11: {busy: 1.0, at: later},
	}

	busy, err := k.ThreadInfo(10)
	require.NoError(t, err)
	assert.InDelta(t, 900, busy.CPUUsage, 1)

	idle, err := k.ThreadInfo(11)
	require.NoError(t, err)
	assert.True(t, idle.Idle())

	_, err = k.ThreadInfo(12)
	assert.True(t, errors.HasCode(err, ErrThreadInfo))
}

func TestProcKernelOneBusyGoroutine(t *testing.T) {
	if testing.Short() {
		t.Skip("spins a core for half a second")
	}

	var stop atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for !stop.Load() {
		}
	}()
	defer func() {
		stop.Store(true)
		<-done
	}()

	// the spinning thread must exist before the first sample to be measured
	time.Sleep(50 * time.Millisecond)

	s := NewSampler(NewProcKernel(int32(os.Getpid())))
	if _, err := s.CurrentUsage(); err != nil {
		t.Skipf("process accounting unavailable: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	usage, err := s.CurrentUsage()
	require.NoError(t, err)
	assert.Greater(t, usage, 50.0)
	assert.Less(t, usage, 160.0, "one busy goroutine keeps about one core busy")
}
