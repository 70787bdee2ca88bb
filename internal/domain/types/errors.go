package types

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds for prediction failures. Typed errors below match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrModelLoad  = errors.New("model load failed")
)

// ValidationError reports input the core cannot satisfy.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a team with no statistics in the requested range.
type NotFoundError struct {
	Team  string
	Range SeasonRange
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no stats found for team %s in %s", e.Team, e.Range)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ModelLoadError reports a missing or corrupt model artifact.
type ModelLoadError struct {
	ModelType ModelType
	Err       error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load %s models: %v", e.ModelType, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ModelLoadError) Unwrap() error { return e.Err }

// Is matches ErrModelLoad.
func (e *ModelLoadError) Is(target error) bool { return target == ErrModelLoad }

// Failure kind labels returned by FailureKind.
const (
	FailureNone       = "ok"
	FailureValidation = "validation"
	FailureNotFound   = "not_found"
	FailureModelLoad  = "model_load"
	FailureCanceled   = "canceled"
	FailureInternal   = "internal"
)

// FailureKind classifies err for metrics and client responses.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrValidation):
		return FailureValidation
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrModelLoad):
		return FailureModelLoad
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	}
	return FailureInternal
}
