package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kiranshivaraju/gemba/internal/config"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// contentGenerator is satisfied by *genai.Models.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient creates a genai client for the Gemini API. The same client serves
// generation and embeddings.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return cli, nil
}

// Provider implements models.Generator using Gemini.
type Provider struct {
	models      contentGenerator
	model       string
	temperature float32
}

func NewProvider(client *genai.Client, cfg config.GeminiConfig, temperature float64) *Provider {
	return &Provider{models: client.Models, model: cfg.Model, temperature: float32(temperature)}
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Generate(ctx context.Context, instructions, prompt string) (string, error) {
	temp := p.temperature
	resp, err := p.models.GenerateContent(ctx, p.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instructions}}},
			Temperature:       &temp,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini %s: %w", p.model, models.ErrEmptyOutput)
	}
	return text, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

var _ models.Generator = (*Provider)(nil)
