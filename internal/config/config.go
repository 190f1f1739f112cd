package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Gemba suggestion server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel slog.Level
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Temperature      float64
	Gemini           GeminiConfig
	Ollama           OllamaConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

// EmbeddingConfig selects the text encoder used for similarity ranking.
// Dimensions of 0 keeps the provider default.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	Dimensions int
	CacheSize  int
	Timeout    time.Duration
}

// RetrievalConfig bounds each filtering stage and the generation context.
type RetrievalConfig struct {
	RootCauseTopK     int
	ActionProblemTopK int
	ActionTopK        int
	MaxContextRecords int
	CorpusLimit       int
	CorpusTimeout     time.Duration
}

type AuthConfig struct {
	BootstrapKey string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

var validProviders = map[string]bool{
	"gemini": true,
	"ollama": true,
}

var validEncoders = map[string]bool{
	"gemini":  true,
	"ollama":  true,
	"hashing": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	aiProvider := os.Getenv("AI_PROVIDER")
	embedProvider := envString("EMBEDDING_PROVIDER", aiProvider)

	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("GEMBA_PORT", 8080),
			Env:      envString("GEMBA_ENV", "development"),
			LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			Provider:         aiProvider,
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Temperature:      envFloat("AI_TEMPERATURE", 0.2),
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
		},
		Embedding: EmbeddingConfig{
			Provider:   embedProvider,
			Model:      envString("EMBEDDING_MODEL", defaultEmbeddingModel(embedProvider)),
			Dimensions: envInt("EMBEDDING_DIMENSIONS", 0),
			CacheSize:  envInt("EMBEDDING_CACHE_SIZE", 4096),
			Timeout:    envDurationSecs("EMBEDDING_TIMEOUT_SECS", 15*time.Second),
		},
		Retrieval: RetrievalConfig{
			RootCauseTopK:     envInt("RETRIEVAL_ROOT_CAUSE_TOP_K", 10),
			ActionProblemTopK: envInt("RETRIEVAL_ACTION_PROBLEM_TOP_K", 8),
			ActionTopK:        envInt("RETRIEVAL_ACTION_TOP_K", 5),
			MaxContextRecords: envInt("RETRIEVAL_MAX_CONTEXT_RECORDS", 5),
			CorpusLimit:       envInt("RETRIEVAL_CORPUS_LIMIT", 1000),
			CorpusTimeout:     envDurationSecs("RETRIEVAL_CORPUS_TIMEOUT_SECS", 10*time.Second),
		},
		Auth: AuthConfig{
			BootstrapKey: os.Getenv("BOOTSTRAP_API_KEY"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of gemini, ollama; got %q", c.AI.Provider)
	}
	if !validEncoders[c.Embedding.Provider] {
		return fmt.Errorf("EMBEDDING_PROVIDER must be one of gemini, ollama, hashing; got %q", c.Embedding.Provider)
	}

	needsGeminiKey := c.AI.Provider == "gemini" || c.Embedding.Provider == "gemini"
	if needsGeminiKey && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when gemini is used for generation or embeddings")
	}
	usesOllama := c.AI.Provider == "ollama" || c.Embedding.Provider == "ollama"
	if usesOllama && !strings.HasPrefix(c.AI.Ollama.BaseURL, "http://") && !strings.HasPrefix(c.AI.Ollama.BaseURL, "https://") {
		return fmt.Errorf("OLLAMA_BASE_URL must start with http:// or https://, got %q", c.AI.Ollama.BaseURL)
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2, got %v", c.AI.Temperature)
	}

	r := c.Retrieval
	if r.RootCauseTopK <= 0 || r.ActionProblemTopK <= 0 || r.ActionTopK <= 0 || r.MaxContextRecords <= 0 {
		return fmt.Errorf("RETRIEVAL_* sizes must be positive")
	}
	if r.CorpusTimeout <= 0 || c.Embedding.Timeout <= 0 {
		return fmt.Errorf("RETRIEVAL_CORPUS_TIMEOUT_SECS and EMBEDDING_TIMEOUT_SECS must be positive")
	}
	if r.ActionTopK > r.ActionProblemTopK {
		return fmt.Errorf("RETRIEVAL_ACTION_TOP_K (%d) must not exceed RETRIEVAL_ACTION_PROBLEM_TOP_K (%d)",
			r.ActionTopK, r.ActionProblemTopK)
	}

	if c.Auth.BootstrapKey != "" && len(c.Auth.BootstrapKey) < 16 {
		return fmt.Errorf("BOOTSTRAP_API_KEY must be at least 16 characters")
	}

	return nil
}

func defaultEmbeddingModel(provider string) string {
	switch provider {
	case "gemini":
		return "text-embedding-004"
	case "ollama":
		return "nomic-embed-text"
	default:
		return ""
	}
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func envLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return lvl
}
