// Package retrieval selects the historical incidents most similar to a query
// and renders them into a context block for generation.
package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/gemba/internal/metrics"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Field selects the text of a candidate that a ranking stage compares against the query.
type Field[R any] struct {
	Name  string
	Value func(R) string
}

type baser interface {
	Base() models.BaseRecord
}

// ProblemField ranks candidates by their problem description.
func ProblemField[R baser]() Field[R] {
	return Field[R]{Name: "problem", Value: func(r R) string { return r.Base().Problem }}
}

// RootCauseField ranks candidates by their recorded root cause.
func RootCauseField[R baser]() Field[R] {
	return Field[R]{Name: "root_cause", Value: func(r R) string { return r.Base().RootCause }}
}

// Ranker scores candidates against a query using a text encoder.
// A nil encoder is allowed and makes every ranking degrade to corpus order.
type Ranker struct {
	encoder models.Encoder
	logger  *slog.Logger
	timeout time.Duration
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithEncodeTimeout bounds every encoder call. An encoder that does not
// answer in time is treated as unavailable.
func WithEncodeTimeout(d time.Duration) RankerOption {
	return func(rk *Ranker) {
		if d > 0 {
			rk.timeout = d
		}
	}
}

// NewRanker creates a Ranker.
func NewRanker(encoder models.Encoder, logger *slog.Logger, opts ...RankerOption) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	rk := &Ranker{encoder: encoder, logger: logger}
	for _, o := range opts {
		o(rk)
	}
	return rk
}

func (rk *Ranker) encode(ctx context.Context, texts []string) ([][]float32, error) {
	if rk.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rk.timeout)
		defer cancel()
	}
	return rk.encoder.Encode(ctx, texts)
}

// Rank returns up to topK candidates ordered by descending cosine similarity
// between the query and the selected field. Equal scores keep input order.
// Candidates whose field is blank are skipped. When the encoder cannot produce
// vectors the first min(topK, n) candidates are returned in input order with
// score 0. Rank never fails.
func Rank[R any](ctx context.Context, rk *Ranker, query string, candidates []R, field Field[R], topK int) []models.Ranked[R] {
	if len(candidates) == 0 || topK <= 0 {
		return []models.Ranked[R]{}
	}

	valid := make([]models.Ranked[R], 0, len(candidates))
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	for i, c := range candidates {
		v := strings.TrimSpace(field.Value(c))
		if v == "" {
			continue
		}
		valid = append(valid, models.Ranked[R]{Record: c, Index: i})
		texts = append(texts, v)
	}
	if len(valid) == 0 {
		return []models.Ranked[R]{}
	}

	if strings.TrimSpace(query) == "" {
		return degrade(rk, valid, topK, field.Name, "empty_query")
	}
	if rk == nil || rk.encoder == nil {
		return degrade(rk, valid, topK, field.Name, "no_encoder")
	}

	vectors, err := rk.encode(ctx, texts)
	if err != nil {
		rk.log().Warn("encoder unavailable, ranking by corpus order",
			"field", field.Name,
			"encoder", rk.encoder.Name(),
			"error", err,
		)
		return degrade(rk, valid, topK, field.Name, "encode_error")
	}
	if len(vectors) != len(texts) {
		rk.log().Warn("encoder returned wrong vector count, ranking by corpus order",
			"field", field.Name,
			"want", len(texts),
			"got", len(vectors),
		)
		return degrade(rk, valid, topK, field.Name, "vector_count")
	}

	q := vectors[0]
	for i := range valid {
		valid[i].Score = CosineSimilarity(q, vectors[i+1])
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Score > valid[j].Score
	})

	if len(valid) > topK {
		valid = valid[:topK]
	}

	if rk.log().Enabled(ctx, slog.LevelDebug) {
		scores := make([]float64, len(valid))
		indexes := make([]int, len(valid))
		for i, r := range valid {
			scores[i] = r.Score
			indexes[i] = r.Index
		}
		rk.log().DebugContext(ctx, "ranked candidates",
			"query", query,
			"field", field.Name,
			"candidates", len(candidates),
			"top_k", topK,
			"indexes", indexes,
			"scores", scores,
		)
	}

	return valid
}

func degrade[R any](rk *Ranker, valid []models.Ranked[R], topK int, field, reason string) []models.Ranked[R] {
	metrics.RetrievalDegradedTotal.WithLabelValues(reason).Inc()
	rk.log().Debug("ranking degraded to corpus order", "field", field, "reason", reason)
	if len(valid) > topK {
		valid = valid[:topK]
	}
	return valid
}

func (rk *Ranker) log() *slog.Logger {
	if rk == nil || rk.logger == nil {
		return slog.Default()
	}
	return rk.logger
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) {
		return 0
	}
	return s
}
