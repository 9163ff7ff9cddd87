package usage

import (
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"github.com/shirou/gopsutil/v3/process"
)

type threadTimes struct {
	busy float64
	at   time.Time
}

// ProcKernel implements Kernel on top of gopsutil. TaskThreads reads every
// thread's cumulative CPU time from /proc/<pid>/task/<tid>/stat in one pass.
// A thread's usage is its busy time since the previous sample divided by
// the wall time elapsed, so the first sample of a thread reports it idle.
type ProcKernel struct {
	pid int32
	now func() time.Time

	mu          sync.Mutex
	last        map[Thread]threadTimes
	current     map[Thread]threadTimes
	outstanding int
}

func NewProcKernel(pid int32) *ProcKernel {
	return &ProcKernel{
		pid:     pid,
		now:     time.Now,
		last:    make(map[Thread]threadTimes),
		current: make(map[Thread]threadTimes),
	}
}

func (k *ProcKernel) TaskThreads() (ThreadList, error) {
	proc, err := process.NewProcess(k.pid)
	if err != nil {
		return nil, errors.New().Wrap(ErrNoProcess, err).WithData(k.pid)
	}

	threads, err := proc.Threads()
	if err != nil {
		return nil, err
	}
	now := k.now()

	list := make(ThreadList, 0, len(threads))
	current := make(map[Thread]threadTimes, len(threads))
	for tid, times := range threads {
		t := Thread(tid)
		list = append(list, t)
		if times != nil {
			current[t] = threadTimes{busy: times.User + times.System, at: now}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })

	k.mu.Lock()
	k.current = current
	k.outstanding++
	k.mu.Unlock()

	return list, nil
}

// ThreadInfo reports t's usage between the two most recent TaskThreads
// calls that listed it.
func (k *ProcKernel) ThreadInfo(t Thread) (ThreadBasicInfo, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	cur, ok := k.current[t]
	if !ok {
		return ThreadBasicInfo{}, errors.New().WithData(ErrThreadInfo, int32(t))
	}

	prev, seen := k.last[t]
	k.last[t] = cur
	if !seen {
		return ThreadBasicInfo{Flags: FlagIdle}, nil
	}

	return usageBetween(prev, cur), nil
}

// Deallocate forgets threads that are no longer part of the task.
func (k *ProcKernel) Deallocate(list ThreadList) {
	alive := make(map[Thread]struct{}, len(list))
	for _, t := range list {
		alive[t] = struct{}{}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.outstanding--
	for t := range k.last {
		if _, ok := alive[t]; !ok {
			delete(k.last, t)
		}
	}
}

// Outstanding is the number of thread lists not yet deallocated.
func (k *ProcKernel) Outstanding() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.outstanding
}

func usageBetween(prev, cur threadTimes) ThreadBasicInfo {
	elapsed := cur.at.Sub(prev.at).Seconds()
	delta := cur.busy - prev.busy
	if elapsed <= 0 || delta <= 0 {
		return ThreadBasicInfo{Flags: FlagIdle}
	}

	usage := delta / elapsed * UsageScale
	if usage > UsageScale {
		usage = UsageScale
	}

	return ThreadBasicInfo{CPUUsage: int32(usage)}
}
