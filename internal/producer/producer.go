// Package producer abstracts the diff source: a Gemini-backed generator for
// live use and a replay generator for offline runs and tests. The pipeline
// sees only the Producer interface, so every retry path is exercisable
// without network access.
package producer

import "context"

// Producer turns a prompt into diff text. Retry prompts include the
// aggregated validation feedback from the rejected attempt.
type Producer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
