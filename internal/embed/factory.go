package embed

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/kiranshivaraju/gemba/internal/config"
	"github.com/kiranshivaraju/gemba/internal/ollama"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Clients carries the provider clients an encoder may be built on.
// Only the client matching the configured provider needs to be set.
type Clients struct {
	Gemini *genai.Client
	Ollama ollama.Client
}

// New returns the encoder selected by cfg, wrapped in a vector cache when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, clients Clients) (models.Encoder, error) {
	var enc models.Encoder
	switch cfg.Provider {
	case "hashing":
		enc = NewHashing(cfg.Dimensions)
	case "gemini":
		if clients.Gemini == nil {
			return nil, fmt.Errorf("gemini encoder requires a genai client")
		}
		enc = NewGemini(clients.Gemini, cfg.Model, cfg.Dimensions)
	case "ollama":
		if clients.Ollama == nil {
			return nil, fmt.Errorf("ollama encoder requires an ollama client")
		}
		enc = NewOllama(clients.Ollama, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}

	if cfg.CacheSize <= 0 {
		return enc, nil
	}
	cached, err := NewCached(enc, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
