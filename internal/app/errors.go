package service

import "errors"

// Sentinel kinds for prediction service errors.
var (
	ErrNonFiniteOutput = errors.New("model produced a non-finite value")
)
