package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/gemba/internal/ai"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Call records one Generate invocation.
type Call struct {
	Instructions string
	Prompt       string
}

// MockProvider satisfies models.Generator for testing.
type MockProvider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, instructions, prompt string) (string, error)

	mu    sync.Mutex
	calls []Call
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Generate(ctx context.Context, instructions, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Instructions: instructions, Prompt: prompt})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, instructions, prompt)
	}
	return "", nil
}

// Calls returns the invocations seen so far.
func (m *MockProvider) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// NewMockProvider returns a MockProvider that always answers with raw.
func NewMockProvider(raw string) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, _, _ string) (string, error) {
			return raw, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// NewPanickingProvider returns a MockProvider whose Generate panics.
func NewPanickingProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-panic",
		GenerateFunc: func(_ context.Context, _, _ string) (string, error) {
			panic("provider exploded")
		},
	}
}

// Compile-time check that MockProvider implements Generator.
var _ models.Generator = (*MockProvider)(nil)
