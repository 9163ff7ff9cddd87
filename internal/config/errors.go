package config

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	ErrInvalidOption = errors.ErrorCode("config_invalid_option")
)
