package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/gemba/internal/ai"
	"github.com/kiranshivaraju/gemba/internal/api/response"
	"github.com/kiranshivaraju/gemba/internal/recovery"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

const maxBodyBytes = 1 << 20

// Suggester defines the interface the suggestion handlers depend on.
type Suggester interface {
	SuggestRootCauses(ctx context.Context, q models.QueryContext) (models.RootCauseSuggestion, error)
	SuggestActions(ctx context.Context, q models.QueryContext) (models.ActionSuggestion, error)
	ScoreRootCauses(ctx context.Context, q models.QueryContext, causes []string) (models.ScoreResult, error)
	MergeRootCauses(ctx context.Context, items []models.UserRootCause) (models.MergeResult, error)
	Areas(ctx context.Context) ([]string, error)
}

type rootCauseResponse struct {
	InputArea           string   `json:"input_area"`
	InputProblem        string   `json:"input_problem"`
	SuggestedRootCauses []string `json:"suggested_root_causes"`
	Error               string   `json:"error,omitempty"`
}

// NewRootCauseHandler returns an http.HandlerFunc for POST /api/v1/root-cause/suggest.
func NewRootCauseHandler(svc Suggester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q models.QueryContext
		if !decodeBody(w, r, &q) {
			return
		}

		out, err := svc.SuggestRootCauses(r.Context(), q)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, rootCauseResponse{
			InputArea:           q.Area,
			InputProblem:        q.Problem,
			SuggestedRootCauses: out.Causes,
			Error:               out.Error,
		})
	}
}

type actionsResponse struct {
	InputArea         string   `json:"input_area"`
	InputProblem      string   `json:"input_problem"`
	InputRootCause    string   `json:"input_root_cause"`
	TemporaryActions  []string `json:"temporary_actions"`
	PreventiveActions []string `json:"preventive_actions"`
	Error             string   `json:"error,omitempty"`
}

// NewActionsHandler returns an http.HandlerFunc for POST /api/v1/actions/suggest.
func NewActionsHandler(svc Suggester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q models.QueryContext
		if !decodeBody(w, r, &q) {
			return
		}

		out, err := svc.SuggestActions(r.Context(), q)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, actionsResponse{
			InputArea:         q.Area,
			InputProblem:      q.Problem,
			InputRootCause:    q.RootCause,
			TemporaryActions:  out.TemporaryActions,
			PreventiveActions: out.PreventiveActions,
			Error:             out.Error,
		})
	}
}

type scoreRequest struct {
	models.QueryContext
	RootCauses []string `json:"root_causes"`
}

type scoreResponse struct {
	models.ScoreResult
	Best *models.CauseScore `json:"best"`
}

// NewScoreHandler returns an http.HandlerFunc for POST /api/v1/root-cause/score.
func NewScoreHandler(svc Suggester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if !decodeBody(w, r, &req) {
			return
		}

		out, err := svc.ScoreRootCauses(r.Context(), req.QueryContext, req.RootCauses)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := scoreResponse{ScoreResult: out}
		if best, ok := recovery.Best(out); ok {
			resp.Best = &best
		}
		response.JSON(w, resp)
	}
}

type mergeRequest struct {
	RootCauses []models.UserRootCause `json:"root_causes"`
}

// NewMergeHandler returns an http.HandlerFunc for POST /api/v1/root-cause/merge.
func NewMergeHandler(svc Suggester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mergeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		out, err := svc.MergeRootCauses(r.Context(), req.RootCauses)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, out)
	}
}

// NewAreasHandler returns an http.HandlerFunc for GET /api/v1/areas.
func NewAreasHandler(svc Suggester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		areas, err := svc.Areas(r.Context())
		if err != nil {
			slog.Error("list areas failed", "error", err)
			response.Error(w, http.StatusServiceUnavailable, "CORPUS_UNAVAILABLE",
				"Incident history is not available", nil)
			return
		}
		response.JSON(w, map[string]any{"areas": areas})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var inputErr *ai.InputError
	switch {
	case errors.As(err, &inputErr):
		msg := inputErr.Reason
		if msg == "" {
			msg = "Missing required fields"
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", msg,
			map[string]any{"fields": inputErr.Fields})
	case errors.Is(err, ai.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	default:
		slog.Error("suggestion request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
