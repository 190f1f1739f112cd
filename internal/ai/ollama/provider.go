package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/gemba/internal/config"
	ollamaapi "github.com/kiranshivaraju/gemba/internal/ollama"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Provider implements models.Generator using Ollama.
type Provider struct {
	client      ollamaapi.Client
	model       string
	temperature float64
}

func NewProvider(client ollamaapi.Client, cfg config.OllamaConfig, temperature float64) *Provider {
	return &Provider{client: client, model: cfg.Model, temperature: temperature}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Generate(ctx context.Context, instructions, prompt string) (string, error) {
	out, err := p.client.Generate(ctx, ollamaapi.GenerateRequest{
		Model:       p.model,
		System:      instructions,
		Prompt:      prompt,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("ollama %s: %w", p.model, models.ErrEmptyOutput)
	}
	return out, nil
}

var _ models.Generator = (*Provider)(nil)
