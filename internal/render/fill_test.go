package render_test

import (
	"testing"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
	"codeberg.org/mutker/pipdrain/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFrame(t *testing.T, f *media.Factory, size render.Size, k int64) *media.Frame {
	t.Helper()
	frame, err := f.Make(size.Width, size.Height, media.NewTime(k, 30), 30)
	require.NoError(t, err)
	return frame
}

func pixelAt(t *testing.T, frame *media.Frame, x, y int) [4]byte {
	t.Helper()
	buf := frame.ImageBuffer()
	require.NoError(t, buf.Lock(media.LockReadOnly))
	defer func() { require.NoError(t, buf.Unlock(media.LockReadOnly)) }()

	base := buf.BaseAddress()
	off := y*buf.BytesPerRow() + x*4
	return [4]byte{base[off], base[off+1], base[off+2], base[off+3]}
}

func TestFillRendererCanvasSize(t *testing.T) {
	r := render.NewFillRenderer(logger.Nop())
	assert.Equal(t, render.Size{Width: 160, Height: 90}, r.PreferredCanvasSize())
}

func TestFillRendererHueCycle(t *testing.T) {
	r := render.NewFillRenderer(logger.Nop())

	for n := 0; n < render.HueCycle; n++ {
		assert.InDelta(t, float64(n)/150, r.Hue(n), 1e-12)
	}
	assert.Equal(t, r.Hue(0), r.Hue(150))
	assert.Equal(t, r.Hue(42), r.Hue(42+3*render.HueCycle))
	assert.Equal(t, r.Color(7), r.Color(157))
}

func TestFillRendererPaintsWholeCanvas(t *testing.T) {
	r := render.NewFillRenderer(logger.Nop())
	f := media.NewFactory(media.WithLogger(logger.Nop()))
	size := r.PreferredCanvasSize()

	frame := makeFrame(t, f, size, 1)
	r.Render(frame)
	assert.Equal(t, 1, r.Painted())
	assert.False(t, frame.ImageBuffer().IsLocked(), "lock must be released after paint")

	// hue 0 is pure red
	want := [4]byte{0xFF, 0xFF, 0x00, 0x00}
	assert.Equal(t, want, pixelAt(t, frame, 0, 0))
	assert.Equal(t, want, pixelAt(t, frame, size.Width-1, 0))
	assert.Equal(t, want, pixelAt(t, frame, size.Width/2, size.Height/2))
	assert.Equal(t, want, pixelAt(t, frame, size.Width-1, size.Height-1))
}

func TestFillRendererAdvancesPerFrame(t *testing.T) {
	r := render.NewFillRenderer(logger.Nop())
	f := media.NewFactory(media.WithLogger(logger.Nop()))
	size := r.PreferredCanvasSize()

	for k := 1; k <= render.HueCycle+1; k++ {
		frame := makeFrame(t, f, size, int64(k))
		r.Render(frame)

		red, green, blue := r.Color(k - 1).RGB255()
		assert.Equal(t, [4]byte{0xFF, red, green, blue}, pixelAt(t, frame, 3, 3), "frame %d", k)
		frame.Release()
	}
	assert.Equal(t, render.HueCycle+1, r.Painted())
}

func TestFillRendererSkipsUnreachablePixels(t *testing.T) {
	r := render.NewFillRenderer(logger.Nop())
	f := media.NewFactory(media.WithLogger(logger.Nop()))

	released := makeFrame(t, f, r.PreferredCanvasSize(), 1)
	released.Release()

	assert.NotPanics(t, func() {
		r.Render(released)
		r.Render(nil)
	})
	assert.Zero(t, r.Painted(), "skipped frames must not advance the hue")
}

func TestNew(t *testing.T) {
	r, err := render.New("fill", logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &render.FillRenderer{}, r)
	assert.Equal(t, []string{"fill"}, render.Names())

	_, err = render.New("plasma", logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidRenderer))
}
