package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/gemba/internal/ollama"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")

	// ErrInvalidInput is the only error suggestion operations return to callers.
	ErrInvalidInput = errors.New("invalid input")
)

// InputError reports which required fields a request was missing.
type InputError struct {
	Fields []string
	Reason string
}

func (e *InputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: missing %v", e.Fields)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// classify maps a generator failure to one of the package sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrInferenceTimeout), errors.Is(err, ErrInvalidResponse):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ollama.ErrOllamaTimeout):
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	case errors.Is(err, models.ErrEmptyOutput):
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	default:
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}
