package usage

import (
	"codeberg.org/mutker/pipdrain/internal/errors"
)

// Sampler sums the busy percentage of every non-idle thread of a task.
type Sampler struct {
	kernel Kernel
}

func NewSampler(kernel Kernel) *Sampler {
	return &Sampler{kernel: kernel}
}

// CurrentUsage returns the task's CPU usage in percent, where 100 is one
// fully busy core. Any enumeration or query failure discards the whole
// sample and is reported as an error, never as a partial sum.
func (s *Sampler) CurrentUsage() (float64, error) {
	errFactory := errors.New()

	threads, err := s.kernel.TaskThreads()
	if err != nil {
		return 0, errFactory.Wrap(ErrTaskThreads, err)
	}
	if threads == nil {
		return 0, errFactory.New(ErrNilThreadList)
	}
	defer s.kernel.Deallocate(threads)

	var total float64
	for _, t := range threads {
		info, err := s.kernel.ThreadInfo(t)
		if err != nil {
			return 0, errFactory.Wrap(ErrThreadInfo, err).WithData(t)
		}
		if !info.Idle() {
			total += float64(info.CPUUsage) / UsageScale * 100
		}
	}

	return total, nil
}
