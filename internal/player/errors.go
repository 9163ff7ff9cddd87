package player

import "codeberg.org/mutker/pipdrain/internal/errors"

const (
	ErrMissingComponent = errors.ErrorCode("player_missing_component")
)
