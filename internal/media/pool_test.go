package media_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrs(w, h, maxBuffers int) media.PoolAttributes {
	return media.PoolAttributes{
		Width:                w,
		Height:               h,
		BytesPerRowAlignment: w * 4,
		PixelFormat:          media.PixelFormat32ARGB,
		MaxBuffers:           maxBuffers,
	}
}

func TestNewPoolValidates(t *testing.T) {
	tests := []struct {
		name  string
		attrs media.PoolAttributes
		code  errors.ErrorCode
	}{
		{"zero width", attrs(0, 90, 1), media.ErrInvalidGeometry},
		{"negative height", attrs(160, -1, 1), media.ErrInvalidGeometry},
		{"unknown format", media.PoolAttributes{Width: 2, Height: 2, PixelFormat: 99}, media.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := media.NewPool(tt.attrs)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}
}

func TestPoolRowAlignment(t *testing.T) {
	p, err := media.NewPool(attrs(160, 90, 0))
	require.NoError(t, err)
	assert.Equal(t, 640, p.BytesPerRow())

	a := attrs(3, 2, 0)
	a.BytesPerRowAlignment = 16
	p, err = media.NewPool(a)
	require.NoError(t, err)
	assert.Equal(t, 16, p.BytesPerRow())
}

func TestPoolExhaustionAndRecycle(t *testing.T) {
	p, err := media.NewPool(attrs(4, 4, 2))
	require.NoError(t, err)

	a, err := p.Get()
	require.NoError(t, err)
	b, err := p.Get()
	require.NoError(t, err)

	_, err = p.Get()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, media.ErrBufferExhausted))
	assert.Equal(t, 2, p.Outstanding())

	// returning a buffer through a frame makes it available again
	desc, err := media.NewFormatDescription(a)
	require.NoError(t, err)
	frame, err := media.NewFrame(a, desc, media.TimingInfo{
		Duration:              media.FrameDuration(30),
		PresentationTimeStamp: media.Zero,
		DecodeTimeStamp:       media.Zero,
	})
	require.NoError(t, err)
	frame.Release()
	frame.Release()
	assert.Equal(t, 1, p.Outstanding())

	c, err := p.Get()
	require.NoError(t, err)
	assert.Same(t, a, c)
	assert.NotSame(t, b, c)
	assert.Equal(t, 2, p.Allocated())
}

func TestPoolAllocationDenied(t *testing.T) {
	p, err := media.NewPool(attrs(4, 4, 0), media.WithByteAllocator(func(int) ([]byte, error) {
		return nil, fmt.Errorf("out of memory")
	}))
	require.NoError(t, err)

	_, err = p.Get()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, media.ErrBufferAllocation))
	assert.Zero(t, p.Allocated())
	assert.Zero(t, p.Outstanding())
}

func TestPixelBufferLocking(t *testing.T) {
	p, err := media.NewPool(attrs(2, 2, 0))
	require.NoError(t, err)
	buf, err := p.Get()
	require.NoError(t, err)

	assert.Nil(t, buf.BaseAddress())
	assert.False(t, buf.IsLocked())

	require.NoError(t, buf.Lock(media.LockReadWrite))
	assert.True(t, buf.IsLocked())
	assert.Len(t, buf.BaseAddress(), 2*8)
	require.NoError(t, buf.Unlock(media.LockReadWrite))

	assert.Nil(t, buf.BaseAddress())
	err = buf.Unlock(media.LockReadWrite)
	assert.True(t, errors.HasCode(err, media.ErrBufferNotLocked))
}
