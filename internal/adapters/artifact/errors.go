package artifact

import "errors"

// Sentinel error kinds for artifact loading.
var (
	ErrNotFound       = errors.New("artifact not found")
	ErrDecode         = errors.New("artifact decode failed")
	ErrSchemaMismatch = errors.New("artifact schema mismatch")
	ErrUnknownType    = errors.New("no artifacts for model type")
)
