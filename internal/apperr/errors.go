// Package apperr defines sentinel errors shared across components.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Model collaborator failures. Callers must treat these as recoverable:
	// a failed call degrades to a defined fallback, never to a process fault.
	ErrTimeout     = errors.New("model call timed out")
	ErrUnavailable = errors.New("model unavailable")
	ErrBadOutput   = errors.New("model output unparsable")
)
