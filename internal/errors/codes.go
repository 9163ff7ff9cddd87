package errors

// Codes shared by more than one package. Component packages declare their own.
const (
	ErrInternal          ErrorCode = "internal_error"
	ErrInvalidArgument   ErrorCode = "invalid_argument"
	ErrAlreadyRunning    ErrorCode = "already_running"
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"
	ErrTimeout           ErrorCode = "operation_timeout"

	// config
	ErrInvalidConfig    ErrorCode = "invalid_configuration"
	ErrBindFlags        ErrorCode = "bind_flags_failed"
	ErrReadConfig       ErrorCode = "read_config_failed"
	ErrInvalidFrameRate ErrorCode = "invalid_frame_rate"
	ErrInvalidInterval  ErrorCode = "invalid_interval"
	ErrInvalidSink      ErrorCode = "invalid_sink"
	ErrInvalidRenderer  ErrorCode = "invalid_renderer"
	ErrInvalidLogLevel  ErrorCode = "invalid_log_level"

	// drainer start-up and sampling
	ErrInitSink    ErrorCode = "init_sink_failed"
	ErrInitGPU     ErrorCode = "init_gpu_failed"
	ErrPIDFile     ErrorCode = "pid_file_failed"
	ErrSampleCPU   ErrorCode = "sample_cpu_failed"
	ErrMakeFrame   ErrorCode = "make_frame_failed"
	ErrReadBattery ErrorCode = "read_battery_failed"

	// metrics store
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error",
	ErrInvalidArgument:   "Invalid argument",
	ErrAlreadyRunning:    "Another drainer is already running",
	ErrResourceNotFound:  "Resource not found",
	ErrResourceExhausted: "Resource exhausted",
	ErrTimeout:           "Operation timed out",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read config file",
	ErrInvalidFrameRate:  "Frame rate must be positive",
	ErrInvalidInterval:   "Interval must be positive",
	ErrInvalidSink:       "Unknown display sink",
	ErrInvalidRenderer:   "Unknown renderer",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitSink:          "Failed to open display sink",
	ErrInitGPU:           "Failed to initialize GPU sampler",
	ErrPIDFile:           "Failed to manage PID file",
	ErrSampleCPU:         "Failed to sample CPU usage",
	ErrMakeFrame:         "Failed to make frame",
	ErrReadBattery:       "Failed to read battery state",
	ErrInitMetrics:       "Failed to open metrics store",
	ErrCollectMetrics:    "Failed to record metrics snapshot",
	ErrCloseMetrics:      "Failed to close metrics store",
}

// GetErrorMessage returns the default message for code, or the code itself.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return string(code)
}
