package usage

import "sync"

// Tracker keeps the most recent CPU readings in a ring buffer. Failed
// readings are counted but not stored, so averages only cover real samples.
type Tracker struct {
	mu       sync.RWMutex
	samples  []float64
	head     int
	count    int
	peak     float64
	failures int
}

// NewTracker returns a tracker holding up to capacity samples. A
// non-positive capacity defaults to 600, one minute at 100ms.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = 600
	}
	return &Tracker{samples: make([]float64, capacity)}
}

func (t *Tracker) Record(percent float64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.failures++
		return
	}

	if percent > t.peak {
		t.peak = percent
	}
	t.samples[t.head] = percent
	t.head = (t.head + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
}

// Samples returns the stored readings from oldest to newest.
func (t *Tracker) Samples() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]float64, t.count)
	for i := range out {
		out[i] = t.samples[t.index(i)]
	}
	return out
}

// Current returns the newest reading, or false when there is none.
func (t *Tracker) Current() (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.count == 0 {
		return 0, false
	}
	return t.samples[t.index(t.count-1)], true
}

func (t *Tracker) Average() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.count == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < t.count; i++ {
		sum += t.samples[t.index(i)]
	}
	return sum / float64(t.count)
}

func (t *Tracker) Peak() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.peak
}

// Failures is the number of discarded readings.
func (t *Tracker) Failures() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.failures
}

// index maps the i-th oldest sample to its slot.
func (t *Tracker) index(i int) int {
	n := len(t.samples)
	return (t.head - t.count + i + n) % n
}
