package media

import (
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/pipdrain/internal/errors"
)

// TimingInfo carries the timestamps of one frame. Frames are never
// reordered, so DecodeTimeStamp always equals PresentationTimeStamp.
type TimingInfo struct {
	Duration              Time
	PresentationTimeStamp Time
	DecodeTimeStamp       Time
}

// Frame is a timestamped, format-described pixel buffer ready for a sink. A
// frame may be released on a different goroutine from the one reading it.
type Frame struct {
	buffer  atomic.Pointer[PixelBuffer]
	format  *FormatDescription
	timing  TimingInfo
	release sync.Once
}

// NewFrame assembles a frame, checking that desc describes buf and that the
// timing is usable.
func NewFrame(buf *PixelBuffer, desc *FormatDescription, timing TimingInfo) (*Frame, error) {
	errFactory := errors.New()

	if buf == nil || desc == nil {
		return nil, errFactory.WithMessage(ErrFrameAssembly, "missing pixel buffer or format description")
	}
	if !desc.Matches(buf) {
		return nil, errFactory.WithData(ErrDescriptionMismatch, *desc)
	}
	if !timing.Duration.IsValid() || timing.Duration.Value <= 0 ||
		!timing.PresentationTimeStamp.IsValid() || !timing.DecodeTimeStamp.IsValid() {
		return nil, errFactory.WithData(ErrInvalidTiming, timing)
	}

	f := &Frame{
		format: desc,
		timing: timing,
	}
	f.buffer.Store(buf)

	return f, nil
}

// ImageBuffer returns the pixel buffer, or nil once the frame is released.
func (f *Frame) ImageBuffer() *PixelBuffer {
	if f == nil {
		return nil
	}
	return f.buffer.Load()
}

func (f *Frame) FormatDescription() *FormatDescription { return f.format }
func (f *Frame) Timing() TimingInfo                    { return f.timing }
func (f *Frame) PresentationTimeStamp() Time           { return f.timing.PresentationTimeStamp }
func (f *Frame) Duration() Time                        { return f.timing.Duration }

// Release hands the pixel buffer back to its pool. Only the first call has
// an effect.
func (f *Frame) Release() {
	f.release.Do(func() {
		if buf := f.buffer.Swap(nil); buf != nil && buf.pool != nil {
			buf.pool.put(buf)
		}
	})
}
