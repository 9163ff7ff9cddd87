package usage

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	ErrTaskThreads   = errors.ErrorCode("usage_task_threads_failed")
	ErrNilThreadList = errors.ErrorCode("usage_nil_thread_list")
	ErrThreadInfo    = errors.ErrorCode("usage_thread_info_failed")
	ErrNoProcess     = errors.ErrorCode("usage_process_not_found")
	ErrNoReading     = errors.ErrorCode("usage_no_reading")
)

var errNoReading = errors.New().WithMessage(ErrNoReading, "No CPU reading yet")
