// Package llm abstracts the language-model collaborator behind a single
// capability interface so the query parser, synthesizer, and enrichment
// pipeline can substitute a deterministic stub in tests.
package llm

import "context"

// Invoker sends one prompt to the model and returns its text completion.
// Implementations must bound each call with their configured timeout and
// report failures as apperr.ErrTimeout or apperr.ErrUnavailable; callers
// treat any non-success as recoverable.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}
