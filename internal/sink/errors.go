package sink

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	ErrSinkFailed   = errors.ErrorCode("sink_failed")
	ErrOutOfOrder   = errors.ErrorCode("sink_out_of_order")
	ErrSinkClosed   = errors.ErrorCode("sink_closed")
	ErrNilFrame     = errors.ErrorCode("sink_nil_frame")
	ErrUnknownSink  = errors.ErrorCode("sink_unknown")
	ErrPipeline     = errors.ErrorCode("sink_pipeline_failed")
	ErrPushRejected = errors.ErrorCode("sink_push_rejected")
)
