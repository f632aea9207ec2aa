// Package llm abstracts the language model behind a narrow completion
// interface so the intent parser and dispatcher can be tested with fakes.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrTimeout reports that the model did not answer within the
	// configured deadline.
	ErrTimeout = errors.New("language model timeout")
	// ErrUnavailable reports a transport or API failure.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrBadResponse reports a well-formed reply that could not be used
	// (empty, blocked, or not matching the expected shape).
	ErrBadResponse = errors.New("unusable language model response")
)

// Completer generates text for a prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, opts Options) (string, error)
}

// Options tune one completion call.
type Options struct {
	MaxTokens   int
	Temperature float64
}
