// Package looper provides a fixed-rate clock that notifies a single delegate
// on every tick.
package looper

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
)

// toleranceFactor is the share of the interval a tick may drift.
const toleranceFactor = 10

// MaxFrequency is the highest rate with a non-zero tick interval.
const MaxFrequency = int(time.Second)

// Delegate receives one call per tick. The looper is passed so the delegate
// can stop or restart it from inside Loop.
type Delegate interface {
	Loop(l *Looper)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(l *Looper)

func (f DelegateFunc) Loop(l *Looper) { f(l) }

// Stats counts deliveries since the looper was created.
type Stats struct {
	Ticks   uint64 // ticks accepted while running
	Late    uint64 // ticks that arrived after interval+tolerance
	Skipped uint64 // ticks with no delegate attached
}

type Option func(*Looper)

// WithLogger sets the logger used for misuse warnings and drift reports.
func WithLogger(log logger.Logger) Option {
	return func(l *Looper) {
		l.log = log
	}
}

type Looper struct {
	frequency int
	interval  time.Duration
	tolerance time.Duration
	log       logger.Logger

	// deliverMu serialises delegate calls across run generations.
	deliverMu sync.Mutex

	mu         sync.Mutex
	running    bool
	generation uint64
	ticker     *time.Ticker
	quit       chan struct{}
	delegate   Delegate
	stats      Stats

	// inflight is the sequence number of the delegate call in progress, or
	// 0. caller is the goroutine making it. done is signalled when it ends.
	seq      uint64
	inflight uint64
	caller   int64
	done     *sync.Cond
}

// New creates a stopped looper ticking frequencyPerSecond times a second.
func New(frequencyPerSecond int, opts ...Option) (*Looper, error) {
	if frequencyPerSecond <= 0 || frequencyPerSecond > MaxFrequency {
		return nil, errors.New().WithData(ErrInvalidFrequency, frequencyPerSecond)
	}

	interval := time.Second / time.Duration(frequencyPerSecond)
	l := &Looper{
		frequency: frequencyPerSecond,
		interval:  interval,
		tolerance: interval / toleranceFactor,
		log:       logger.New("looper"),
	}
	l.done = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func (l *Looper) Frequency() int           { return l.frequency }
func (l *Looper) Interval() time.Duration  { return l.interval }
func (l *Looper) Tolerance() time.Duration { return l.tolerance }

// SetDelegate attaches d, replacing any previous delegate. The looper does
// not own the delegate; pass nil to detach before the delegate goes away.
func (l *Looper) SetDelegate(d Delegate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delegate = d
}

func (l *Looper) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Looper) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Run starts ticking. Calling Run on a running looper only logs a warning.
func (l *Looper) Run() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		l.log.Warn().Msg("Looper is already running.")
		return
	}

	l.running = true
	l.generation++
	gen := l.generation
	l.ticker = time.NewTicker(l.interval)
	l.quit = make(chan struct{})
	ticks, quit := l.ticker.C, l.quit
	l.mu.Unlock()

	l.log.Debug().
		Int("frequency", l.frequency).
		Dur("interval", l.interval).
		Dur("tolerance", l.tolerance).
		Msg("Looper started")

	go l.loop(gen, ticks, quit)
}

// Stop halts the looper and waits for a delegate call in progress to return,
// so no delegate code runs for this looper once Stop returns. Called from
// inside the delegate it returns at once. Stop is idempotent.
func (l *Looper) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.running = false
		l.ticker.Stop()
		l.ticker = nil
		close(l.quit)
		l.quit = nil

		l.log.Debug().Uint64("ticks", l.stats.Ticks).Msg("Looper stopped")
	}

	if l.inflight == 0 || l.caller == goid() {
		return
	}
	for call := l.inflight; l.inflight == call; {
		l.done.Wait()
	}
}

func (l *Looper) loop(gen uint64, ticks <-chan time.Time, quit <-chan struct{}) {
	g := goid()
	last := time.Now()
	for {
		select {
		case <-quit:
			return
		case now := <-ticks:
			l.deliver(gen, g, now.Sub(last))
			last = now
		}
	}
}

func (l *Looper) deliver(gen uint64, g int64, elapsed time.Duration) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	if !l.running || l.generation != gen {
		l.mu.Unlock()
		return
	}

	l.stats.Ticks++
	if elapsed > l.interval+l.tolerance {
		l.stats.Late++
		l.log.Debug().
			Dur("elapsed", elapsed).
			Dur("interval", l.interval).
			Msg("Tick later than tolerance")
	}

	d := l.delegate
	if d == nil {
		l.stats.Skipped++
		l.mu.Unlock()
		return
	}

	l.seq++
	l.inflight, l.caller = l.seq, g
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.inflight, l.caller = 0, 0
		l.done.Broadcast()
		l.mu.Unlock()
	}()
	d.Loop(l)
}

// goid returns the id of the calling goroutine, parsed from the header of
// its stack trace ("goroutine 18 [running]:").
func goid() int64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
