package estimator

import "errors"

// Sentinel kinds for estimator errors.
var (
	ErrInvalidSpec   = errors.New("invalid estimator spec")
	ErrShapeMismatch = errors.New("feature row shape mismatch")
	ErrNonFinite     = errors.New("non-finite feature without imputer")
)
