package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownModel       = errors.New("unknown model")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports a caller input that violates a model rule. It is
// surfaced before any network call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// MissingInputError reports an archetype-mandated file that was not supplied,
// e.g. the source image for an image-to-video model.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Field)
}

// ShapeError reports an upstream success response whose body matched none of
// the known result shapes. The raw payload is retained for diagnostics.
type ShapeError struct {
	Raw map[string]any
}

func (e *ShapeError) Error() string {
	return "unrecognized response shape"
}

// UpstreamError reports a non-success status from the provider.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: status %d: %s", e.Status, e.Body)
}

// ExhaustedError is terminal: the primary request and every alternate format
// failed. Last carries the most recent upstream diagnostic.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all request formats exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
