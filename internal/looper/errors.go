package looper

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	ErrInvalidFrequency = errors.ErrorCode("looper_invalid_frequency")
)
