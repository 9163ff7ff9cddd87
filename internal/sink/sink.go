package sink

import (
	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
	"github.com/lucasb-eyer/go-colorful"
)

// Status of a display sink.
type Status int

const (
	StatusUnknown Status = iota
	StatusRendering
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRendering:
		return "rendering"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Sink accepts finished frames for presentation, one per tick, in
// timestamp order. Enqueue takes ownership of the frame and releases it
// back to its pool whether or not it was accepted.
type Sink interface {
	Enqueue(frame *media.Frame) error
	// Flush drops queued state and clears a failed status.
	Flush()
	Status() Status
	Close() error
}

// FrameInfo summarises a frame for sinks that do not keep pixels.
type FrameInfo struct {
	PTS    media.Time
	Width  int
	Height int
	Color  colorful.Color
}

// Summarize reads frame's geometry, timestamp and top-left pixel colour.
func Summarize(frame *media.Frame) FrameInfo {
	info := FrameInfo{PTS: frame.PresentationTimeStamp()}

	buf := frame.ImageBuffer()
	if buf == nil {
		return info
	}
	info.Width, info.Height = buf.Width(), buf.Height()

	if err := buf.Lock(media.LockReadOnly); err != nil {
		return info
	}
	defer func() {
		_ = buf.Unlock(media.LockReadOnly)
	}()

	if px := buf.BaseAddress(); len(px) >= 4 {
		info.Color = colorful.Color{
			R: float64(px[1]) / 255,
			G: float64(px[2]) / 255,
			B: float64(px[3]) / 255,
		}
	}

	return info
}

// Options configure sinks built by New.
type Options struct {
	FPS    int
	Width  int
	Height int
	Log    logger.Logger
}

type constructor func(opts Options) (Sink, error)

var registry = map[string]constructor{
	"log": func(opts Options) (Sink, error) {
		return NewLogSink(opts.FPS, opts.Log), nil
	},
}

// New builds the sink registered under kind. The terminal display is not
// built here since it needs a reader for its channel.
func New(kind string, opts Options) (Sink, error) {
	if opts.Log == nil {
		opts.Log = logger.New("sink")
	}

	ctor, ok := registry[kind]
	if !ok {
		return nil, errors.New().WithData(ErrUnknownSink, kind)
	}

	s, err := ctor(opts)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitSink, err).WithData(kind)
	}

	return s, nil
}
