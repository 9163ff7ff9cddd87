package player

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/looper"
	"codeberg.org/mutker/pipdrain/internal/media"
	"codeberg.org/mutker/pipdrain/internal/render"
	"codeberg.org/mutker/pipdrain/internal/sink"
)

// Stats counts what happened on each tick.
type Stats struct {
	Ticks    int64
	Produced int64
	Skipped  int64
	Rejected int64
	Paused   int64
	Flushes  int64
	LastPTS  media.Time
}

type Option func(*Player)

func WithLogger(log logger.Logger) Option {
	return func(p *Player) {
		p.log = log
	}
}

// WithDraining sets the initial drain state. Players start draining.
func WithDraining(on bool) Option {
	return func(p *Player) {
		p.draining = on
	}
}

// Player produces one frame per clock tick: it advances the presentation
// timestamp, asks the factory for a frame sized to the renderer's canvas,
// paints it and hands it to the sink.
type Player struct {
	factory  *media.Factory
	renderer render.Renderer
	sink     sink.Sink
	fps      int
	log      logger.Logger

	mu       sync.Mutex
	pts      media.Time
	draining bool
	stats    Stats
}

func New(factory *media.Factory, renderer render.Renderer, out sink.Sink, fps int, opts ...Option) (*Player, error) {
	errFactory := errors.New()

	if factory == nil || renderer == nil || out == nil {
		return nil, errFactory.New(ErrMissingComponent)
	}
	if !media.FrameDuration(fps).IsValid() {
		return nil, errFactory.WithData(errors.ErrInvalidFrameRate, fps)
	}

	p := &Player{
		factory:  factory,
		renderer: renderer,
		sink:     out,
		fps:      fps,
		log:      logger.New("player"),
		pts:      media.Zero,
		draining: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Loop implements looper.Delegate.
func (p *Player) Loop(_ *looper.Looper) {
	p.Tick()
}

// Tick runs one render cycle. Failures skip the tick; the timestamp still
// advances so the next frame keeps its place on the timeline.
func (p *Player) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Ticks++

	if p.sink.Status() == sink.StatusFailed {
		p.log.Warn().Str("pts", p.pts.String()).Msg("Display sink failed, flushing")
		p.sink.Flush()
		p.stats.Flushes++
	}

	p.pts = p.pts.Add(media.FrameDuration(p.fps))

	if !p.draining {
		p.stats.Paused++
		return
	}

	size := p.renderer.PreferredCanvasSize()
	frame, err := p.factory.Make(size.Width, size.Height, p.pts, p.fps)
	if err != nil {
		p.stats.Skipped++
		return
	}

	p.renderer.Render(frame)

	if err := p.sink.Enqueue(frame); err != nil {
		p.stats.Rejected++
		p.log.Debug().Err(err).Str("pts", p.pts.String()).Msg("Display sink rejected frame")
		return
	}

	p.stats.Produced++
	p.stats.LastPTS = p.pts
}

// SetDraining switches frame production on or off. While off, ticks only
// advance the timeline, which reads as paused playback.
func (p *Player) SetDraining(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining != on {
		p.log.Info().Bool("draining", on).Msg("Energy drain switched")
	}
	p.draining = on
}

func (p *Player) IsDraining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draining
}

// IsPaused reports the playback state shown to the system surface.
func (p *Player) IsPaused() bool {
	return !p.IsDraining()
}

func (p *Player) PresentationTimeStamp() media.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pts
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
