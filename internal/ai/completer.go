package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by backends that cannot serve requests at all.
	ErrUnavailable = errors.New("generative backend is unavailable")
	// ErrEmptyResponse is returned when the backend answered with no text.
	ErrEmptyResponse = errors.New("generative backend returned empty response")
)

// Completer is the single capability every agent needs from a generative backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Describer is implemented by backends that can name their provider and model
// for structured logs.
type Describer interface {
	Provider() string
	Model() string
}

// Describe returns the provider and model of c when it exposes them.
func Describe(c Completer) (provider, model string) {
	if d, ok := c.(Describer); ok {
		return d.Provider(), d.Model()
	}
	return "", ""
}

// Offline never reaches a model. Every agent takes its deterministic path.
type Offline struct{}

func (Offline) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Offline) Provider() string { return "offline" }

func (Offline) Model() string { return "" }

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
