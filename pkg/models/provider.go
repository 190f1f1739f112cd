package models

import (
	"context"
	"errors"
)

// ErrEmptyOutput is wrapped by generators whose model answered without any text.
var ErrEmptyOutput = errors.New("model returned no text")

// Generator is the generative-model capability. It receives task instructions
// and a prompt carrying the query and its assembled context, and returns the
// model's raw text in a single round trip.
// Never call a specific provider directly; always inject this interface.
type Generator interface {
	Generate(ctx context.Context, instructions, prompt string) (string, error)
	// Name returns the provider identifier (e.g., "gemini", "ollama").
	Name() string
}

// Encoder turns texts into fixed-length vectors. Encode returns exactly one
// vector per input text, in input order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}
