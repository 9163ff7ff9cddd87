package sink_test

import (
	"testing"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
	"codeberg.org/mutker/pipdrain/internal/render"
	"codeberg.org/mutker/pipdrain/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	factory  *media.Factory
	renderer *render.FillRenderer
}

func newFixture() *fixture {
	return &fixture{
		factory:  media.NewFactory(media.WithLogger(logger.Nop()), media.WithMaxBuffers(4)),
		renderer: render.NewFillRenderer(logger.Nop()),
	}
}

func (f *fixture) frame(t *testing.T, k int64) *media.Frame {
	t.Helper()
	size := f.renderer.PreferredCanvasSize()
	frame, err := f.factory.Make(size.Width, size.Height, media.NewTime(k, 30), 30)
	require.NoError(t, err)
	f.renderer.Render(frame)
	return frame
}

func (f *fixture) outstanding(t *testing.T) int {
	t.Helper()
	size := f.renderer.PreferredCanvasSize()
	pool, ok := f.factory.Pool(media.PoolKey{Width: size.Width, Height: size.Height})
	require.True(t, ok)
	return pool.Outstanding()
}

func TestLogSinkOrdering(t *testing.T) {
	fx := newFixture()
	s := sink.NewLogSink(30, logger.Nop())
	assert.Equal(t, sink.StatusUnknown, s.Status())

	for k := int64(1); k <= 10; k++ {
		require.NoError(t, s.Enqueue(fx.frame(t, k)))
	}
	assert.Equal(t, sink.StatusRendering, s.Status())
	assert.Equal(t, int64(10), s.Frames())
	assert.Zero(t, fx.outstanding(t), "presented frames go back to the pool")

	// same timestamp is allowed, going back is not
	require.NoError(t, s.Enqueue(fx.frame(t, 10)))
	err := s.Enqueue(fx.frame(t, 5))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sink.ErrOutOfOrder))
	assert.Equal(t, sink.StatusFailed, s.Status())
	assert.Zero(t, fx.outstanding(t), "rejected frames go back to the pool")

	err = s.Enqueue(fx.frame(t, 12))
	assert.True(t, errors.HasCode(err, sink.ErrSinkFailed))

	s.Flush()
	assert.Equal(t, sink.StatusUnknown, s.Status())
	require.NoError(t, s.Enqueue(fx.frame(t, 1)), "flush forgets the last timestamp")
	assert.Equal(t, sink.StatusRendering, s.Status())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	err = s.Enqueue(fx.frame(t, 2))
	assert.True(t, errors.HasCode(err, sink.ErrSinkClosed))
	assert.Zero(t, fx.outstanding(t))
}

func TestLogSinkNilFrame(t *testing.T) {
	s := sink.NewLogSink(30, logger.Nop())
	err := s.Enqueue(nil)
	assert.True(t, errors.HasCode(err, sink.ErrNilFrame))
	assert.Equal(t, sink.StatusUnknown, s.Status())
}

func TestChannelSink(t *testing.T) {
	fx := newFixture()
	c := sink.NewChannel(2)

	for k := int64(1); k <= 3; k++ {
		require.NoError(t, c.Enqueue(fx.frame(t, k)))
	}
	assert.Equal(t, int64(1), c.Dropped())

	first := <-c.C()
	assert.Equal(t, media.NewTime(1, 30), first.PTS)
	assert.Equal(t, 160, first.Width)
	assert.Equal(t, 90, first.Height)
	assert.Equal(t, fx.renderer.Color(0).Hex(), first.Color.Hex())

	second := <-c.C()
	assert.Equal(t, media.NewTime(2, 30), second.PTS)
	assert.Equal(t, fx.renderer.Color(1).Hex(), second.Color.Hex())

	require.NoError(t, c.Close())
	_, open := <-c.C()
	assert.False(t, open)
	assert.Zero(t, fx.outstanding(t))
}

func TestSummarizeReleasedFrame(t *testing.T) {
	fx := newFixture()
	frame := fx.frame(t, 4)
	frame.Release()

	info := sink.Summarize(frame)
	assert.Equal(t, media.NewTime(4, 30), info.PTS)
	assert.Zero(t, info.Width)
}

func TestNew(t *testing.T) {
	s, err := sink.New("log", sink.Options{FPS: 30, Log: logger.Nop()})
	require.NoError(t, err)
	assert.IsType(t, &sink.LogSink{}, s)

	_, err = sink.New("hologram", sink.Options{Log: logger.Nop()})
	assert.True(t, errors.HasCode(err, sink.ErrUnknownSink))
}
