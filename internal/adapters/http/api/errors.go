package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrBatchTooLarge   = errors.New("batch too large")
	ErrPayloadTooLarge = errors.New("request body too large")
)
