package embed

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/gemba/internal/ollama"
)

// Ollama encodes texts with an embedding model served by Ollama.
type Ollama struct {
	client ollama.Client
	model  string
}

// NewOllama creates an Ollama encoder.
func NewOllama(client ollama.Client, model string) *Ollama {
	return &Ollama{client: client, model: model}
}

func (o *Ollama) Name() string { return "ollama:" + o.model }

func (o *Ollama) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := o.client.Embed(ctx, o.model, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return vecs, nil
}
