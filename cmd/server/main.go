// Package main is the entrypoint for the Gemba suggestion API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/genai"

	"github.com/kiranshivaraju/gemba/internal/ai"
	"github.com/kiranshivaraju/gemba/internal/ai/gemini"
	"github.com/kiranshivaraju/gemba/internal/api"
	"github.com/kiranshivaraju/gemba/internal/api/handler"
	mw "github.com/kiranshivaraju/gemba/internal/api/middleware"
	"github.com/kiranshivaraju/gemba/internal/apikey"
	"github.com/kiranshivaraju/gemba/internal/cache"
	"github.com/kiranshivaraju/gemba/internal/config"
	"github.com/kiranshivaraju/gemba/internal/embed"
	"github.com/kiranshivaraju/gemba/internal/ollama"
	"github.com/kiranshivaraju/gemba/internal/retrieval"
	"github.com/kiranshivaraju/gemba/internal/store"
)

const shutdownTimeout = 30 * time.Second

// logLevel is raised or lowered once configuration is loaded.
var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(cfg.Server.LogLevel)
	slog.Info("config loaded",
		"ai_provider", cfg.AI.Provider,
		"embedding_provider", cfg.Embedding.Provider,
		"env", cfg.Server.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create model clients, encoder and generator
	geminiClient, ollamaClient, err := modelClients(ctx, cfg)
	if err != nil {
		return err
	}

	encoder, err := embed.New(cfg.Embedding, embed.Clients{Gemini: geminiClient, Ollama: ollamaClient})
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	slog.Info("encoder initialized", "encoder", encoder.Name())

	generator, err := ai.NewProvider(cfg.AI, geminiClient, ollamaClient)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", generator.Name())

	// 6. Create store, retrieval pipeline and service
	pgStore := store.NewPostgresStore(pool,
		store.WithCorpusLimit(cfg.Retrieval.CorpusLimit),
		store.WithLogger(slog.Default()),
	)

	if cfg.Auth.BootstrapKey != "" {
		created, err := apikey.EnsureBootstrap(ctx, pgStore, cfg.Auth.BootstrapKey)
		if err != nil {
			return fmt.Errorf("bootstrap api key: %w", err)
		}
		if created {
			slog.Info("bootstrap admin key stored", "key_prefix", apikey.PrefixOf(cfg.Auth.BootstrapKey))
		}
	}

	ranker := retrieval.NewRanker(encoder, slog.Default(), retrieval.WithEncodeTimeout(cfg.Embedding.Timeout))
	pipeline := retrieval.NewPipeline(pgStore, ranker, retrieval.Options{
		RootCauseTopK:     cfg.Retrieval.RootCauseTopK,
		ActionProblemTopK: cfg.Retrieval.ActionProblemTopK,
		ActionTopK:        cfg.Retrieval.ActionTopK,
		CorpusTimeout:     cfg.Retrieval.CorpusTimeout,
	}, slog.Default())
	svc := ai.NewSuggestionService(generator, pipeline, pgStore, redisCache, ai.Options{
		Timeout:           cfg.AI.InferenceTimeout,
		MaxContextRecords: cfg.Retrieval.MaxContextRecords,
	}, slog.Default())

	// 7. Build router with dependencies
	router := api.NewRouter(dependencies(pgStore, redisCache, svc, cfg.RateLimit.RequestsPerMinute))

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.InferenceTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// modelClients creates only the provider clients the configuration uses.
// An unused Ollama client is returned as a nil interface.
func modelClients(ctx context.Context, cfg *config.Config) (*genai.Client, ollama.Client, error) {
	var (
		geminiClient *genai.Client
		ollamaClient ollama.Client
	)
	if cfg.AI.Provider == "gemini" || cfg.Embedding.Provider == "gemini" {
		c, err := gemini.NewClient(ctx, cfg.AI.Gemini.APIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client: %w", err)
		}
		geminiClient = c
	}
	if cfg.AI.Provider == "ollama" || cfg.Embedding.Provider == "ollama" {
		ollamaClient = ollama.NewHTTPClient(cfg.AI.Ollama.BaseURL, cfg.AI.InferenceTimeout)
	}
	return geminiClient, ollamaClient, nil
}

// dependencies wires handlers and middleware around the suggestion service.
func dependencies(s store.Store, c cache.Cache, svc *ai.SuggestionService, requestsPerMinute int) api.Dependencies {
	return api.Dependencies{
		Auth:      mw.NewAuth(s),
		RateLimit: mw.NewRateLimit(c, requestsPerMinute),

		HealthHandler: handler.NewHealthHandler(svc.Provider(), map[string]handler.Pinger{
			"database": s,
			"cache":    c,
		}),
		MetricsHandler:   promhttp.Handler(),
		RootCauseHandler: handler.NewRootCauseHandler(svc),
		ActionsHandler:   handler.NewActionsHandler(svc),
		ScoreHandler:     handler.NewScoreHandler(svc),
		MergeHandler:     handler.NewMergeHandler(svc),
		AreasHandler:     handler.NewAreasHandler(svc),
		CreateKeyHandler: handler.NewCreateKeyHandler(s),
		ListKeysHandler:  handler.NewListKeysHandler(s),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(s),
	}
}
