package battery

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	ErrNoBattery       = errors.ErrorCode("battery_not_found")
	ErrInvalidCapacity = errors.ErrorCode("battery_invalid_capacity")
)
