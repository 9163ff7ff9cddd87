//go:build gst

package sink

import (
	"fmt"
	"sync/atomic"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

func init() {
	registry["gst"] = func(opts Options) (Sink, error) {
		return NewGstSink(opts.Width, opts.Height, opts.FPS, opts.Log)
	}
}

// GstSink pushes frames into a GStreamer pipeline:
//
//	appsrc → videoconvert → autovideosink
type GstSink struct {
	guard    orderGuard
	log      logger.Logger
	pipeline *gst.Pipeline
	src      *app.Source
	width    int
	height   int

	pushed atomic.Int64
}

func NewGstSink(width, height, fps int, log logger.Logger) (*GstSink, error) {
	errFactory := errors.New()

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("pipdrain")
	if err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}
	src.SetCaps(gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=ARGB,width=%d,height=%d,framerate=%d/1", width, height, fps)))
	src.SetProperty("format", gst.FormatTime)
	src.SetProperty("is-live", true)
	src.SetProperty("do-timestamp", false)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}
	display, err := gst.NewElement("autovideosink")
	if err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}

	if err := pipeline.AddMany(src.Element, convert, display); err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}
	if err := gst.ElementLinkMany(src.Element, convert, display); err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, errFactory.Wrap(ErrPipeline, err)
	}

	return &GstSink{
		log:      log,
		pipeline: pipeline,
		src:      src,
		width:    width,
		height:   height,
	}, nil
}

func (s *GstSink) Enqueue(frame *media.Frame) error {
	if frame != nil {
		defer frame.Release()
	}

	if err := s.guard.admit(frame); err != nil {
		return err
	}

	data, err := packRows(frame)
	if err != nil {
		s.guard.fail()
		return err
	}

	buf := gst.NewBufferFromBytes(data)
	buf.SetPresentationTimestamp(frame.PresentationTimeStamp().Duration())
	buf.SetDuration(frame.Duration().Duration())

	if ret := s.src.PushBuffer(buf); ret != gst.FlowOK {
		s.guard.fail()
		s.log.Warn().Str("flow", ret.String()).Msg("GStreamer rejected frame")
		return errors.New().WithData(ErrPushRejected, ret.String())
	}
	s.pushed.Add(1)

	return nil
}

func (s *GstSink) Flush() {
	s.guard.flush()
}

func (s *GstSink) Status() Status {
	return s.guard.get()
}

func (s *GstSink) Close() error {
	if !s.guard.close() {
		return nil
	}

	s.src.EndStream()
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return errors.New().Wrap(ErrPipeline, err)
	}
	s.log.Info().Int64("frames", s.pushed.Load()).Msg("GStreamer sink closed")

	return nil
}

// packRows copies the frame's pixels into a tightly packed slice.
func packRows(frame *media.Frame) ([]byte, error) {
	buf := frame.ImageBuffer()
	if buf == nil {
		return nil, errors.New().New(media.ErrBufferReleased)
	}
	if err := buf.Lock(media.LockReadOnly); err != nil {
		return nil, err
	}
	defer func() {
		_ = buf.Unlock(media.LockReadOnly)
	}()

	base := buf.BaseAddress()
	row := buf.Width() * buf.PixelFormat().BytesPerPixel()
	out := make([]byte, row*buf.Height())
	for y := 0; y < buf.Height(); y++ {
		copy(out[y*row:(y+1)*row], base[y*buf.BytesPerRow():])
	}

	return out, nil
}
