package embed

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// geminiBatchLimit is the largest number of texts sent in one embedding call.
const geminiBatchLimit = 100

var errEmptyEmbedding = errors.New("embedding response carried no values")

// contentEmbedder is satisfied by *genai.Models.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Gemini encodes texts with a Gemini embedding model.
type Gemini struct {
	models     contentEmbedder
	model      string
	dimensions int
}

// NewGemini creates a Gemini encoder backed by a genai client.
// A dimensions value of 0 keeps the model's native width.
func NewGemini(client *genai.Client, model string, dimensions int) *Gemini {
	return &Gemini{models: client.Models, model: model, dimensions: dimensions}
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dimensions > 0 {
		d := int32(g.dimensions)
		cfg.OutputDimensionality = &d
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
		}

		resp, err := g.models.EmbedContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini embed: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini embed: expected %d embeddings: %w", end-start, errEmptyEmbedding)
		}
		for _, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("gemini embed: %w", errEmptyEmbedding)
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}
