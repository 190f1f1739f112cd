package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/gemba/internal/api/response"
)

const healthTimeout = 3 * time.Second

// Pinger is a dependency whose reachability is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type healthResponse struct {
	Status   string            `json:"status"`
	Provider string            `json:"provider"`
	Checks   map[string]string `json:"checks"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. All
// dependencies are pinged concurrently; any failure makes the status degraded.
func NewHealthHandler(provider string, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var mu sync.Mutex
		checks := make(map[string]string, len(deps))
		g, gctx := errgroup.WithContext(ctx)
		for name, dep := range deps {
			g.Go(func() error {
				status := "ok"
				if err := dep.Ping(gctx); err != nil {
					status = "error: " + err.Error()
				}
				mu.Lock()
				checks[name] = status
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		resp := healthResponse{Status: "ok", Provider: provider, Checks: checks}
		for _, status := range checks {
			if status != "ok" {
				resp.Status = "degraded"
			}
		}
		if resp.Status != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "One or more dependencies are unavailable", resp)
			return
		}
		response.JSON(w, resp)
	}
}
