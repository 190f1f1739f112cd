package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/gemba/internal/metrics"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// ErrCorpusUnavailable indicates the historical incident store could not be read.
var ErrCorpusUnavailable = errors.New("incident corpus unavailable")

// Corpus reads historical incidents whose area and category contain the given
// values (case-insensitive substring match). Records missing required fields
// are never returned.
type Corpus interface {
	BaseRecords(ctx context.Context, area, category string) ([]models.BaseRecord, error)
	ActionRecords(ctx context.Context, area, category string) ([]models.ActionRecord, error)
}

// Options sizes the filtering stages. CorpusTimeout bounds each corpus read.
type Options struct {
	RootCauseTopK     int
	ActionProblemTopK int
	ActionTopK        int
	CorpusTimeout     time.Duration
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{RootCauseTopK: 10, ActionProblemTopK: 8, ActionTopK: 5, CorpusTimeout: 10 * time.Second}
}

// Stage is one ranking pass of a sequential filter.
type Stage[R any] struct {
	Query string
	Field Field[R]
	TopK  int
}

// Sequential runs stages in order, each ranking only the survivors of the
// previous one. An empty intermediate set ends the pipeline without further
// encoder calls. The returned Index always refers to the position in candidates.
func Sequential[R any](ctx context.Context, rk *Ranker, candidates []R, stages ...Stage[R]) []models.Ranked[R] {
	current := make([]models.Ranked[R], len(candidates))
	for i, c := range candidates {
		current[i] = models.Ranked[R]{Record: c, Index: i}
	}

	for _, st := range stages {
		if len(current) == 0 {
			return []models.Ranked[R]{}
		}
		records := make([]R, len(current))
		for i, r := range current {
			records[i] = r.Record
		}
		ranked := Rank(ctx, rk, st.Query, records, st.Field, st.TopK)
		for i := range ranked {
			ranked[i].Index = current[ranked[i].Index].Index
		}
		current = ranked
	}
	return current
}

// Pipeline retrieves ranked candidates for the two suggestion operations.
type Pipeline struct {
	corpus Corpus
	ranker *Ranker
	opts   Options
	logger *slog.Logger
}

// NewPipeline creates a Pipeline. Zero stage sizes take their defaults.
func NewPipeline(corpus Corpus, ranker *Ranker, opts Options, logger *slog.Logger) *Pipeline {
	def := DefaultOptions()
	if opts.RootCauseTopK <= 0 {
		opts.RootCauseTopK = def.RootCauseTopK
	}
	if opts.ActionProblemTopK <= 0 {
		opts.ActionProblemTopK = def.ActionProblemTopK
	}
	if opts.ActionTopK <= 0 {
		opts.ActionTopK = def.ActionTopK
	}
	if opts.CorpusTimeout <= 0 {
		opts.CorpusTimeout = def.CorpusTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{corpus: corpus, ranker: ranker, opts: opts, logger: logger}
}

// RootCauseCandidates returns the historical incidents whose problems are most
// similar to q.Problem within q's area and category.
func (p *Pipeline) RootCauseCandidates(ctx context.Context, q models.QueryContext) []models.Ranked[models.BaseRecord] {
	readCtx, cancel := context.WithTimeout(ctx, p.opts.CorpusTimeout)
	records, err := p.corpus.BaseRecords(readCtx, q.Area, q.Category)
	cancel()
	if err != nil {
		p.logger.Warn("corpus read failed, continuing without history",
			"operation", "root_cause",
			"area", q.Area,
			"category", q.Category,
			"error", err,
		)
		return []models.Ranked[models.BaseRecord]{}
	}

	out := Sequential(ctx, p.ranker, records,
		Stage[models.BaseRecord]{Query: q.Problem, Field: ProblemField[models.BaseRecord](), TopK: p.opts.RootCauseTopK},
	)
	metrics.RetrievalCandidates.WithLabelValues("root_cause").Observe(float64(len(out)))
	p.logger.Info("root cause candidates selected",
		"area", q.Area,
		"category", q.Category,
		"corpus", len(records),
		"selected", len(out),
	)
	return out
}

// ActionCandidates narrows the corpus by problem similarity and then re-ranks
// the survivors by root cause similarity.
func (p *Pipeline) ActionCandidates(ctx context.Context, q models.QueryContext) []models.Ranked[models.ActionRecord] {
	readCtx, cancel := context.WithTimeout(ctx, p.opts.CorpusTimeout)
	records, err := p.corpus.ActionRecords(readCtx, q.Area, q.Category)
	cancel()
	if err != nil {
		p.logger.Warn("corpus read failed, continuing without history",
			"operation", "action",
			"area", q.Area,
			"category", q.Category,
			"error", err,
		)
		return []models.Ranked[models.ActionRecord]{}
	}

	out := Sequential(ctx, p.ranker, records,
		Stage[models.ActionRecord]{Query: q.Problem, Field: ProblemField[models.ActionRecord](), TopK: p.opts.ActionProblemTopK},
		Stage[models.ActionRecord]{Query: q.RootCause, Field: RootCauseField[models.ActionRecord](), TopK: p.opts.ActionTopK},
	)
	metrics.RetrievalCandidates.WithLabelValues("action").Observe(float64(len(out)))
	p.logger.Info("action candidates selected",
		"area", q.Area,
		"category", q.Category,
		"corpus", len(records),
		"selected", len(out),
	)
	return out
}
