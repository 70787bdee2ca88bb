package stats

import "errors"

// Sentinel kinds for stats table errors.
var (
	ErrInvalidTable = errors.New("invalid stats table")
)
