// Package llm defines the language-model contract used to generate answers.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned when a language model call fails or yields no
// text.
var ErrGeneration = errors.New("generation failed")

// Prompt is a single-turn request: a system instruction and the user
// message. Conversation history is folded into User by the caller.
type Prompt struct {
	System string
	User   string
}

// Generator is a usable language-model handle.
type Generator interface {
	// Name identifies the backend, e.g. "openrouter" or "anthropic".
	Name() string

	// Generate returns the model's text reply for the prompt.
	Generate(ctx context.Context, p Prompt) (string, error)
}
