package media

import "codeberg.org/mutker/pipdrain/internal/errors"

// MediaType is the four character media type of a format description.
type MediaType string

const MediaTypeVideo MediaType = "vide"

// FormatDescription describes the image carried by a frame.
type FormatDescription struct {
	MediaType MediaType
	Codec     PixelFormat
	Width     int
	Height    int
}

// NewFormatDescription derives a video description from buf's geometry.
func NewFormatDescription(buf *PixelBuffer) (*FormatDescription, error) {
	errFactory := errors.New()

	if buf == nil {
		return nil, errFactory.WithMessage(ErrFormatDescription, "nil pixel buffer")
	}
	if buf.Width() <= 0 || buf.Height() <= 0 {
		return nil, errFactory.WithData(ErrInvalidGeometry, PoolKey{Width: buf.Width(), Height: buf.Height()})
	}
	if buf.PixelFormat().BytesPerPixel() == 0 {
		return nil, errFactory.WithData(ErrUnsupportedFormat, buf.PixelFormat())
	}

	return &FormatDescription{
		MediaType: MediaTypeVideo,
		Codec:     buf.PixelFormat(),
		Width:     buf.Width(),
		Height:    buf.Height(),
	}, nil
}

// Matches reports whether buf has the geometry and format d describes.
func (d *FormatDescription) Matches(buf *PixelBuffer) bool {
	return d.Width == buf.Width() && d.Height == buf.Height() && d.Codec == buf.PixelFormat()
}
