package usage

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/pipdrain/internal/logger"
)

// DefaultInterval is the CPU label refresh cadence.
const DefaultInterval = 100 * time.Millisecond

// Reading is one CPU sample. Err is set when the sample was discarded.
type Reading struct {
	Percent float64
	Err     error
	At      time.Time
}

// Label formats the reading for display.
func (r Reading) Label() string {
	return Format(r.Percent, r.Err)
}

type MonitorOption func(*Monitor)

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = d
	}
}

func WithTracker(t *Tracker) MonitorOption {
	return func(m *Monitor) {
		m.tracker = t
	}
}

func WithLogger(log logger.Logger) MonitorOption {
	return func(m *Monitor) {
		m.log = log
	}
}

// WithListener registers fn to receive every reading, on the monitor's
// goroutine.
func WithListener(fn func(Reading)) MonitorOption {
	return func(m *Monitor) {
		m.listener = fn
	}
}

// Monitor samples CPU usage on its own cadence, independent of the frame
// clock.
type Monitor struct {
	sampler  *Sampler
	interval time.Duration
	tracker  *Tracker
	listener func(Reading)
	log      logger.Logger

	mu     sync.RWMutex
	latest Reading
	failed bool
}

func NewMonitor(sampler *Sampler, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		sampler:  sampler,
		interval: DefaultInterval,
		log:      logger.New("usage"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracker == nil {
		m.tracker = NewTracker(0)
	}

	return m
}

// Run samples until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample()
		}
	}
}

// Sample takes one reading immediately.
func (m *Monitor) Sample() Reading {
	percent, err := m.sampler.CurrentUsage()
	r := Reading{Percent: percent, Err: err, At: time.Now()}
	m.tracker.Record(percent, err)

	m.mu.Lock()
	m.latest = r
	wasFailing := m.failed
	m.failed = err != nil
	m.mu.Unlock()

	// only log transitions, the label already shows the placeholder
	switch {
	case err != nil && !wasFailing:
		m.log.Warn().Err(err).Msg("CPU usage sampling failed")
	case err == nil && wasFailing:
		m.log.Info().Msg("CPU usage sampling recovered")
	}

	if m.listener != nil {
		m.listener(r)
	}

	return r
}

// Latest returns the most recent reading. Before the first sample it
// carries ErrNoReading.
func (m *Monitor) Latest() Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest.At.IsZero() {
		return Reading{Err: errNoReading}
	}
	return m.latest
}

func (m *Monitor) Tracker() *Tracker {
	return m.tracker
}
