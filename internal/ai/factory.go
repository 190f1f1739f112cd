package ai

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/kiranshivaraju/gemba/internal/ai/gemini"
	aiollama "github.com/kiranshivaraju/gemba/internal/ai/ollama"
	"github.com/kiranshivaraju/gemba/internal/config"
	"github.com/kiranshivaraju/gemba/internal/ollama"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// NewProvider constructs the generator selected by cfg on top of the shared
// provider clients. Called once at server startup.
func NewProvider(cfg config.AIConfig, geminiClient *genai.Client, ollamaClient ollama.Client) (models.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		if geminiClient == nil {
			return nil, fmt.Errorf("gemini provider requires a genai client")
		}
		return gemini.NewProvider(geminiClient, cfg.Gemini, cfg.Temperature), nil
	case "ollama":
		if ollamaClient == nil {
			return nil, fmt.Errorf("ollama provider requires an ollama client")
		}
		return aiollama.NewProvider(ollamaClient, cfg.Ollama, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of gemini, ollama", cfg.Provider)
	}
}
