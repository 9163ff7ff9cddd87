package render

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// HueCycle is the number of frames in one full hue rotation.
	HueCycle = 150

	fillWidth  = 160
	fillHeight = 90
)

// FillRenderer fills the whole canvas with one solid colour whose hue
// advances by 1/HueCycle per painted frame.
type FillRenderer struct {
	log logger.Logger

	mu     sync.Mutex
	frames int
}

func NewFillRenderer(log logger.Logger) *FillRenderer {
	if log == nil {
		log = logger.Nop()
	}
	return &FillRenderer{log: log}
}

func (r *FillRenderer) PreferredCanvasSize() Size {
	return Size{Width: fillWidth, Height: fillHeight}
}

// Hue returns the hue in [0, 1) used for the n-th painted frame.
func (*FillRenderer) Hue(n int) float64 {
	return float64(n%HueCycle) / HueCycle
}

// Color returns the fill colour of the n-th painted frame.
func (r *FillRenderer) Color(n int) colorful.Color {
	return colorful.Hsv(r.Hue(n)*360, 1, 1)
}

// Painted is the number of frames painted so far.
func (r *FillRenderer) Painted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Render paints frame. A frame whose pixels cannot be reached is skipped
// without advancing the hue.
func (r *FillRenderer) Render(frame *media.Frame) {
	buf := frame.ImageBuffer()
	if buf == nil {
		r.log.Debug().Msg("Frame has no pixel buffer, skipping paint")
		return
	}

	if err := buf.Lock(media.LockReadWrite); err != nil {
		r.log.Debug().Err(err).Msg("Failed to lock pixel buffer, skipping paint")
		return
	}
	defer func() {
		_ = buf.Unlock(media.LockReadWrite)
	}()

	base := buf.BaseAddress()
	if base == nil {
		r.log.Debug().Msg("Pixel buffer has no base address, skipping paint")
		return
	}

	r.mu.Lock()
	n := r.frames
	r.frames++
	r.mu.Unlock()

	red, green, blue := r.Color(n).RGB255()
	fill(base, buf.Width(), buf.Height(), buf.BytesPerRow(), [4]byte{0xFF, red, green, blue})
}

// fill writes px to every pixel of a 32-bit canvas, leaving row padding alone.
func fill(base []byte, width, height, stride int, px [4]byte) {
	if height == 0 || width == 0 {
		return
	}

	row := base[:width*4]
	for x := 0; x < width; x++ {
		copy(row[x*4:], px[:])
	}
	for y := 1; y < height; y++ {
		copy(base[y*stride:y*stride+width*4], row)
	}
}
