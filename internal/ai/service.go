package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/gemba/internal/cache"
	"github.com/kiranshivaraju/gemba/internal/metrics"
	"github.com/kiranshivaraju/gemba/internal/recovery"
	"github.com/kiranshivaraju/gemba/internal/retrieval"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Request size limits.
const (
	MaxScoreCauses = 20
	MaxMergeItems  = 200
)

// Retriever selects the historical incidents used as generation context.
type Retriever interface {
	RootCauseCandidates(ctx context.Context, q models.QueryContext) []models.Ranked[models.BaseRecord]
	ActionCandidates(ctx context.Context, q models.QueryContext) []models.Ranked[models.ActionRecord]
}

// AreaLister lists the distinct areas present in the incident corpus.
type AreaLister interface {
	ListAreas(ctx context.Context) ([]string, error)
}

// Options tunes a SuggestionService.
type Options struct {
	Timeout           time.Duration
	MaxContextRecords int
	AreasTTL          time.Duration
}

// SuggestionService runs the retrieve, assemble, generate and recover
// sequence for every suggestion operation.
type SuggestionService struct {
	generator models.Generator
	retriever Retriever
	areas     AreaLister
	cache     cache.Cache
	opts      Options
	logger    *slog.Logger
}

// NewSuggestionService creates a new SuggestionService. The cache may be nil.
func NewSuggestionService(gen models.Generator, retriever Retriever, areas AreaLister, ca cache.Cache, opts Options, logger *slog.Logger) *SuggestionService {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxContextRecords <= 0 {
		opts.MaxContextRecords = retrieval.DefaultMaxContextRecords
	}
	if opts.AreasTTL <= 0 {
		opts.AreasTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SuggestionService{
		generator: gen,
		retriever: retriever,
		areas:     areas,
		cache:     ca,
		opts:      opts,
		logger:    logger,
	}
}

// Provider returns the name of the generator in use.
func (s *SuggestionService) Provider() string { return s.generator.Name() }

// SuggestRootCauses proposes likely root causes for q based on similar past incidents.
// The only error returned wraps ErrInvalidInput.
func (s *SuggestionService) SuggestRootCauses(ctx context.Context, q models.QueryContext) (models.RootCauseSuggestion, error) {
	q = q.Normalized()
	if missing := q.Missing(false); len(missing) > 0 {
		return models.RootCauseSuggestion{}, &InputError{Fields: missing}
	}

	ranked := s.retriever.RootCauseCandidates(ctx, q)
	history := retrieval.Assemble(ranked, s.opts.MaxContextRecords)

	raw, err := s.generate(ctx, "root_cause", rootCauseInstructions, rootCausePrompt(q, history))
	if err != nil {
		return recovery.SuggestionFailed(), nil
	}

	out, tier := recovery.StringList(raw)
	s.logRecovery("root_cause", tier, len(ranked))
	return out, nil
}

// SuggestActions proposes temporary and preventive actions for q, which must
// carry a root cause.
// The only error returned wraps ErrInvalidInput.
func (s *SuggestionService) SuggestActions(ctx context.Context, q models.QueryContext) (models.ActionSuggestion, error) {
	q = q.Normalized()
	if missing := q.Missing(true); len(missing) > 0 {
		return models.ActionSuggestion{}, &InputError{Fields: missing}
	}

	ranked := s.retriever.ActionCandidates(ctx, q)
	history := retrieval.Assemble(ranked, s.opts.MaxContextRecords)

	raw, err := s.generate(ctx, "action", actionInstructions, actionPrompt(q, history))
	if err != nil {
		return recovery.ActionsFailed(), nil
	}

	out, tier := recovery.ActionPair(raw)
	s.logRecovery("action", tier, len(ranked))
	return out, nil
}

// ScoreRootCauses grades each submitted root cause against q. The result holds
// exactly one entry per cause, in order.
// The only error returned wraps ErrInvalidInput.
func (s *SuggestionService) ScoreRootCauses(ctx context.Context, q models.QueryContext, causes []string) (models.ScoreResult, error) {
	q = q.Normalized()
	if missing := q.Missing(false); len(missing) > 0 {
		return models.ScoreResult{}, &InputError{Fields: missing}
	}
	cleaned := make([]string, 0, len(causes))
	for _, c := range causes {
		c = strings.TrimSpace(c)
		if c == "" {
			return models.ScoreResult{}, &InputError{Fields: []string{"root_causes"}, Reason: "root_causes must not contain blank entries"}
		}
		cleaned = append(cleaned, c)
	}
	if len(cleaned) == 0 {
		return models.ScoreResult{}, &InputError{Fields: []string{"root_causes"}}
	}
	if len(cleaned) > MaxScoreCauses {
		return models.ScoreResult{}, &InputError{
			Fields: []string{"root_causes"},
			Reason: fmt.Sprintf("at most %d root causes can be scored at once", MaxScoreCauses),
		}
	}

	raw, err := s.generate(ctx, "score", scoringInstructions, scoringPrompt(q, cleaned))
	if err != nil {
		return recovery.ScoresFailed(cleaned), nil
	}

	out, tier := recovery.Scores(raw, cleaned)
	s.logRecovery("score", tier, len(cleaned))
	return out, nil
}

// MergeRootCauses groups equivalent root causes submitted by different users.
// Every item appears exactly once in the result.
// The only error returned wraps ErrInvalidInput.
func (s *SuggestionService) MergeRootCauses(ctx context.Context, items []models.UserRootCause) (models.MergeResult, error) {
	if len(items) == 0 {
		return models.MergeResult{}, &InputError{Fields: []string{"root_causes"}}
	}
	if len(items) > MaxMergeItems {
		return models.MergeResult{}, &InputError{
			Fields: []string{"root_causes"},
			Reason: fmt.Sprintf("at most %d root causes can be merged at once", MaxMergeItems),
		}
	}
	cleaned := make([]models.UserRootCause, len(items))
	for i, it := range items {
		cleaned[i] = models.UserRootCause{
			RootCause: strings.TrimSpace(it.RootCause),
			UserID:    strings.TrimSpace(it.UserID),
		}
		if cleaned[i].RootCause == "" || cleaned[i].UserID == "" {
			return models.MergeResult{}, &InputError{
				Fields: []string{"root_cause", "user_id"},
				Reason: fmt.Sprintf("entry %d needs both root_cause and user_id", i),
			}
		}
	}

	raw, err := s.generate(ctx, "merge", mergeInstructions, mergePrompt(cleaned))
	if err != nil {
		return recovery.MergeFailed(cleaned), nil
	}

	out, tier := recovery.Merge(raw, cleaned)
	s.logRecovery("merge", tier, len(cleaned))
	return out, nil
}

// Areas returns the distinct incident areas, served from the cache when possible.
func (s *SuggestionService) Areas(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		b, found, err := s.cache.Get(ctx, cache.AreasKey())
		if err != nil {
			s.logger.Warn("area cache read failed", "error", err)
		} else if found {
			var areas []string
			if err := json.Unmarshal(b, &areas); err == nil {
				return areas, nil
			}
		}
	}

	areas, err := s.areas.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing areas: %w", err)
	}
	if areas == nil {
		areas = []string{}
	}

	if s.cache != nil {
		b, _ := json.Marshal(areas)
		if err := s.cache.Set(ctx, cache.AreasKey(), b, s.opts.AreasTTL); err != nil {
			s.logger.Warn("area cache write failed", "error", err)
		}
	}
	return areas, nil
}

// generate makes one bounded generator call. Failures, including panics,
// are logged and returned as package sentinels.
func (s *SuggestionService) generate(ctx context.Context, op, instructions, prompt string) (raw string, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	provider := s.generator.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			raw, err = "", fmt.Errorf("%w: panic: %v", ErrProviderUnavailable, r)
		}
		status := "ok"
		if err != nil {
			status = "error"
			s.logger.Error("generation failed",
				"operation", op,
				"provider", provider,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
		}
		metrics.GenerationRequestsTotal.WithLabelValues(provider, op, status).Inc()
		metrics.GenerationDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
	}()

	raw, err = s.generator.Generate(ctx, instructions, prompt)
	if err != nil {
		return "", classify(err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty output", ErrInvalidResponse)
	}
	return raw, nil
}

func (s *SuggestionService) logRecovery(op string, tier recovery.Tier, n int) {
	if tier == recovery.TierDegraded {
		s.logger.Warn("model output unusable, returning degraded result", "operation", op, "items", n)
		return
	}
	s.logger.Info("suggestion recovered", "operation", op, "tier", tier, "items", n)
}
