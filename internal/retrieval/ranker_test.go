package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

// mapEncoder returns fixed vectors per text; unknown texts map to the zero vector.
type mapEncoder struct {
	vectors map[string][]float32
	err     error
	drop    bool
	calls   int
}

func (m *mapEncoder) Name() string { return "map" }

func (m *mapEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0}
		}
	}
	if m.drop {
		return out[1:], nil
	}
	return out, nil
}

func base(t *testing.T, problem, rootCause string) models.BaseRecord {
	t.Helper()
	r, err := models.NewBaseRecord("Press Line", problem, rootCause, "Machine")
	require.NoError(t, err)
	return r
}

func problems(ranked []models.Ranked[models.BaseRecord]) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Record.Problem
	}
	return out
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRank_OrdersByDescendingSimilarity(t *testing.T) {
	enc := &mapEncoder{vectors: map[string][]float32{
		"motor overheating": {1, 0},
		"belt slipping":     {0, 1},
		"motor hot":         {0.9, 0.1},
		"motor noisy":       {0.6, 0.4},
	}}
	rk := NewRanker(enc, nil)
	candidates := []models.BaseRecord{
		base(t, "belt slipping", "worn belt"),
		base(t, "motor noisy", "loose mount"),
		base(t, "motor hot", "blocked fan"),
	}

	got := Rank(context.Background(), rk, "motor overheating", candidates, ProblemField[models.BaseRecord](), 10)

	if diff := cmp.Diff([]string{"motor hot", "motor noisy", "belt slipping"}, problems(got)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, 1, enc.calls)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRank_TopKBoundsResult(t *testing.T) {
	enc := &mapEncoder{vectors: map[string][]float32{"q": {1, 0}, "a": {1, 0}, "b": {0.5, 0.5}, "c": {0, 1}}}
	candidates := []models.BaseRecord{base(t, "c", "x"), base(t, "b", "x"), base(t, "a", "x")}

	got := Rank(context.Background(), NewRanker(enc, nil), "q", candidates, ProblemField[models.BaseRecord](), 2)

	assert.Equal(t, []string{"a", "b"}, problems(got))
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	enc := &mapEncoder{vectors: map[string][]float32{"q": {1, 0}, "first": {1, 1}, "second": {1, 1}, "third": {1, 1}}}
	candidates := []models.BaseRecord{base(t, "first", "x"), base(t, "second", "x"), base(t, "third", "x")}

	got := Rank(context.Background(), NewRanker(enc, nil), "q", candidates, ProblemField[models.BaseRecord](), 3)

	assert.Equal(t, []string{"first", "second", "third"}, problems(got))
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].Index, got[1].Index, got[2].Index})
}

func TestRank_EmptyCandidates(t *testing.T) {
	enc := &mapEncoder{}
	got := Rank(context.Background(), NewRanker(enc, nil), "q", []models.BaseRecord{}, ProblemField[models.BaseRecord](), 5)

	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Zero(t, enc.calls)
}

func TestRank_EncoderFailureFallsBackToCorpusOrder(t *testing.T) {
	candidates := []models.BaseRecord{base(t, "a", "x"), base(t, "b", "x"), base(t, "c", "x")}

	tests := []struct {
		name string
		rk   *Ranker
	}{
		{"encode error", NewRanker(&mapEncoder{err: errors.New("service down")}, nil)},
		{"vector count mismatch", NewRanker(&mapEncoder{drop: true}, nil)},
		{"no encoder", NewRanker(nil, nil)},
		{"nil ranker", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(context.Background(), tt.rk, "q", candidates, ProblemField[models.BaseRecord](), 2)

			assert.Equal(t, []string{"a", "b"}, problems(got))
			for _, r := range got {
				assert.Zero(t, r.Score)
			}
		})
	}
}

func TestRank_FallbackWithFewerCandidatesThanK(t *testing.T) {
	candidates := []models.BaseRecord{base(t, "a", "x")}
	got := Rank(context.Background(), NewRanker(nil, nil), "q", candidates, ProblemField[models.BaseRecord](), 5)
	assert.Equal(t, []string{"a"}, problems(got))
}

func TestRank_BlankQueryUsesCorpusOrder(t *testing.T) {
	enc := &mapEncoder{}
	candidates := []models.BaseRecord{base(t, "a", "x"), base(t, "b", "x")}

	got := Rank(context.Background(), NewRanker(enc, nil), "   ", candidates, ProblemField[models.BaseRecord](), 5)

	assert.Equal(t, []string{"a", "b"}, problems(got))
	assert.Zero(t, enc.calls)
}

func TestRank_SkipsBlankFields(t *testing.T) {
	enc := &mapEncoder{vectors: map[string][]float32{"q": {1, 0}, "kept": {1, 0}}}
	candidates := []models.BaseRecord{{Problem: ""}, base(t, "kept", "x")}

	got := Rank(context.Background(), NewRanker(enc, nil), "q", candidates, ProblemField[models.BaseRecord](), 5)

	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Record.Problem)
	assert.Equal(t, 1, got[0].Index)
}

func TestRank_RootCauseField(t *testing.T) {
	enc := &mapEncoder{vectors: map[string][]float32{"q": {1, 0}, "fan blocked": {1, 0}, "worn belt": {0, 1}}}
	candidates := []models.BaseRecord{base(t, "p1", "worn belt"), base(t, "p2", "fan blocked")}

	got := Rank(context.Background(), NewRanker(enc, nil), "q", candidates, RootCauseField[models.BaseRecord](), 1)

	require.Len(t, got, 1)
	assert.Equal(t, "fan blocked", got[0].Record.RootCause)
}
