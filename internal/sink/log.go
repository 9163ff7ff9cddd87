package sink

import (
	"sync/atomic"

	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
)

// LogSink presents frames by counting them, logging one line per second of
// video at debug level.
type LogSink struct {
	guard orderGuard
	log   logger.Logger
	every int64

	frames   atomic.Int64
	rejected atomic.Int64
}

// NewLogSink returns a LogSink that logs every fps-th frame.
func NewLogSink(fps int, log logger.Logger) *LogSink {
	if fps <= 0 {
		fps = 1
	}
	return &LogSink{log: log, every: int64(fps)}
}

func (s *LogSink) Enqueue(frame *media.Frame) error {
	if frame != nil {
		defer frame.Release()
	}

	if err := s.guard.admit(frame); err != nil {
		s.rejected.Add(1)
		return err
	}

	if n := s.frames.Add(1); n%s.every == 0 {
		info := Summarize(frame)
		s.log.Debug().
			Int64("frames", n).
			Str("pts", info.PTS.String()).
			Str("color", info.Color.Hex()).
			Msg("Frames presented")
	}

	return nil
}

func (s *LogSink) Flush() {
	s.guard.flush()
}

func (s *LogSink) Status() Status {
	return s.guard.get()
}

func (s *LogSink) Close() error {
	if s.guard.close() {
		s.log.Info().
			Int64("frames", s.frames.Load()).
			Int64("rejected", s.rejected.Load()).
			Msg("Display sink closed")
	}
	return nil
}

// Frames is the number of frames presented.
func (s *LogSink) Frames() int64 {
	return s.frames.Load()
}
