package repository

import "errors"

// Sentinel kinds for statistics source errors.
var (
	ErrUnknownSource  = errors.New("unknown stats source")
	ErrMissingColumn  = errors.New("missing identifier column")
	ErrInvalidRow     = errors.New("invalid stats row")
	ErrInvalidTable   = errors.New("invalid table name")
	ErrSourceNotReady = errors.New("stats source not configured")
)
