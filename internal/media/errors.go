package media

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	// Pool Errors
	ErrInvalidGeometry     = errors.ErrorCode("media_invalid_geometry")
	ErrUnsupportedFormat   = errors.ErrorCode("media_unsupported_pixel_format")
	ErrPoolUnavailable     = errors.ErrorCode("media_pool_unavailable")
	ErrBufferExhausted     = errors.ErrorCode("media_buffer_exhausted")
	ErrBufferAllocation    = errors.ErrorCode("media_buffer_allocation_failed")
	ErrBufferReleased      = errors.ErrorCode("media_buffer_released")
	ErrBufferNotLocked     = errors.ErrorCode("media_buffer_not_locked")
	ErrFormatDescription   = errors.ErrorCode("media_format_description_failed")
	ErrFrameAssembly       = errors.ErrorCode("media_frame_assembly_failed")
	ErrInvalidTiming       = errors.ErrorCode("media_invalid_timing")
	ErrDescriptionMismatch = errors.ErrorCode("media_description_mismatch")
)
