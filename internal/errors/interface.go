package errors

// ErrorCode identifies a failure across package boundaries. Codes are
// compared, never messages.
type ErrorCode string

// Error is a coded error. Two Errors match under Is when their codes are
// equal, whatever their message, data or cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
	Is(target error) bool
}

// Factory builds coded errors. Components take one with errors.New() at the
// top of a function and use it for every return path.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
