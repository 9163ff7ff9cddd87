package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"codeberg.org/mutker/pipdrain/internal/battery"
	"codeberg.org/mutker/pipdrain/internal/config"
	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/gpu"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/looper"
	"codeberg.org/mutker/pipdrain/internal/media"
	"codeberg.org/mutker/pipdrain/internal/metrics"
	"codeberg.org/mutker/pipdrain/internal/player"
	"codeberg.org/mutker/pipdrain/internal/render"
	"codeberg.org/mutker/pipdrain/internal/sink"
	"codeberg.org/mutker/pipdrain/internal/ui"
	"codeberg.org/mutker/pipdrain/internal/usage"
)

// app wires the frame clock, the render path and the CPU monitor together.
type app struct {
	cfg    *config.Config
	cancel context.CancelFunc

	looper   *looper.Looper
	player   *player.Player
	sink     sink.Sink
	display  *sink.Channel
	monitor  *usage.Monitor
	metrics  metrics.Collector
	gpu      gpu.Monitor
	battery  *battery.Reader
	renderer render.Renderer
}

func newApp(cfg *config.Config, cancel context.CancelFunc) (*app, error) {
	errFactory := errors.New()
	a := &app{cfg: cfg, cancel: cancel}

	renderer, err := render.New(cfg.Renderer, logger.New("render"))
	if err != nil {
		return nil, err
	}
	a.renderer = renderer
	size := renderer.PreferredCanvasSize()

	if config.SinkKind(cfg.Sink) == config.SinkTUI {
		a.display = sink.NewChannel(cfg.FPS)
		a.sink = a.display
	} else {
		a.sink, err = sink.New(cfg.Sink, sink.Options{
			FPS:    cfg.FPS,
			Width:  size.Width,
			Height: size.Height,
			Log:    logger.New("sink"),
		})
		if err != nil {
			return nil, err
		}
	}

	factory := media.NewFactory(
		media.WithMaxBuffers(cfg.MaxBuffers),
		media.WithLogger(logger.New("media")),
	)

	a.player, err = player.New(factory, renderer, a.sink, cfg.FPS,
		player.WithDraining(cfg.Drain),
		player.WithLogger(logger.New("player")),
	)
	if err != nil {
		return nil, err
	}

	a.looper, err = looper.New(cfg.FPS, looper.WithLogger(logger.New("looper")))
	if err != nil {
		return nil, err
	}
	a.looper.SetDelegate(a.player)

	a.monitor = usage.NewMonitor(
		usage.NewSampler(usage.NewProcKernel(int32(os.Getpid()))),
		usage.WithInterval(cfg.CPUInterval),
		usage.WithLogger(logger.New("usage")),
	)

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.DBPath = cfg.MetricsDB
	metricsCfg.Enabled = cfg.Metrics
	a.metrics, err = metrics.NewService(metricsCfg, logger.New("metrics"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitMetrics, err)
	}

	if cfg.GPU {
		g := gpu.New(logger.New("gpu"))
		if err := g.Initialize(); err != nil {
			// GPU figures are optional, keep draining without them
			logger.Warn().Err(errFactory.Wrap(errors.ErrInitGPU, err)).Msg("GPU sampling disabled")
		} else {
			a.gpu = g
		}
	}

	if cfg.Battery {
		a.battery = battery.NewReader(cfg.BatteryRoot)
		if _, err := a.battery.Read(); err != nil {
			logger.Warn().Err(err).Msg("Battery not readable, drain will not be reported")
			a.battery = nil
		}
	}

	logger.Info().
		Int("fps", cfg.FPS).
		Str("renderer", cfg.Renderer).
		Str("sink", cfg.Sink).
		Bool("draining", cfg.Drain).
		Str("session", a.metrics.Session()).
		Msg("Drainer initialized")

	return a, nil
}

func (a *app) run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.monitor.Run(ctx)
	}()

	a.looper.Run()
	defer a.looper.Stop()

	var err error
	if a.display != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.report(ctx)
		}()
		err = ui.Run(ctx, ui.New(a.display.C(), a.player, a.monitor, a.cancel, a.extras()...))
		a.cancel()
	} else {
		a.report(ctx)
	}

	a.looper.Stop()
	wg.Wait()

	return err
}

// report logs and records a snapshot every metrics interval until ctx is
// done.
func (a *app) report(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.snapshot()
			a.logSnapshot(snapshot)
			if err := a.metrics.Record(ctx, snapshot); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("Failed to record metrics")
			}
		}
	}
}

func (a *app) snapshot() *metrics.Snapshot {
	stats := a.player.Stats()
	reading := a.monitor.Latest()

	s := &metrics.Snapshot{
		Timestamp: time.Now(),
		CPU: metrics.CPUMetrics{
			Percent: reading.Percent,
			Average: a.monitor.Tracker().Average(),
			Valid:   reading.Err == nil,
		},
		Frames: metrics.FrameMetrics{
			Produced: stats.Produced,
			Skipped:  stats.Skipped,
			Rejected: stats.Rejected,
			PTS:      stats.LastPTS.Seconds(),
		},
		Draining: a.player.IsDraining(),
	}

	if a.gpu != nil {
		if r, err := a.gpu.Sample(); err == nil {
			s.GPU = &metrics.GPUMetrics{
				Utilization: int(r.Utilization),
				Temperature: int(r.Temperature),
				Power:       int(r.Power),
			}
		}
	}

	if a.battery != nil {
		if r, err := a.battery.Read(); err == nil {
			s.Battery = &metrics.BatteryMetrics{
				Percent:     r.Percent,
				Drained:     a.battery.Drained(r),
				Discharging: r.Discharging(),
			}
		}
	}

	return s
}

func (a *app) logSnapshot(s *metrics.Snapshot) {
	var cpuErr error
	if !s.CPU.Valid {
		cpuErr = errors.New().New(errors.ErrSampleCPU)
	}

	event := logger.Info().
		Str("cpu", usage.Format(s.CPU.Percent, cpuErr)).
		Int64("frames", s.Frames.Produced).
		Int64("skipped", s.Frames.Skipped).
		Float64("pts", s.Frames.PTS).
		Uint64("late_ticks", a.looper.Stats().Late)
	if s.Battery != nil {
		event = event.Int("battery", s.Battery.Percent).Int("drained", s.Battery.Drained)
	}
	if s.GPU != nil {
		event = event.Int("gpu", s.GPU.Utilization)
	}
	event.Msg("Drain status")
}

func (a *app) extras() []ui.Extra {
	var extras []ui.Extra

	if a.battery != nil {
		extras = append(extras, ui.Extra{Title: "Battery", Read: func() string {
			r, err := a.battery.Read()
			if err != nil {
				return usage.Placeholder
			}
			return fmt.Sprintf("%s\n%s, drained %d%%", ui.Gauge(float64(r.Percent), 16), r.Status, a.battery.Drained(r))
		}})
	}

	if a.gpu != nil {
		extras = append(extras, ui.Extra{Title: "GPU", Read: func() string {
			avg := a.gpu.AverageUtilization()
			return fmt.Sprintf("%s\navg %d%%", ui.Gauge(float64(avg), 16), avg)
		}})
	}

	return extras
}

func (a *app) close() {
	a.looper.Stop()

	if err := a.sink.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close display sink")
	}
	if err := a.metrics.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close metrics")
	}
	if a.gpu != nil {
		if err := a.gpu.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("Failed to shut down NVML")
		}
	}

	stats := a.player.Stats()
	logger.Info().
		Int64("frames", stats.Produced).
		Int64("skipped", stats.Skipped).
		Str("pts", stats.LastPTS.String()).
		Msg("Drain stopped")
}
