package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/gemba/internal/ai"
	"github.com/kiranshivaraju/gemba/internal/ai/mock"
	"github.com/kiranshivaraju/gemba/internal/cache"
	"github.com/kiranshivaraju/gemba/internal/recovery"
	"github.com/kiranshivaraju/gemba/internal/retrieval"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// --- fakes ---

type fakeRetriever struct {
	base    []models.Ranked[models.BaseRecord]
	actions []models.Ranked[models.ActionRecord]
	calls   int
}

func (f *fakeRetriever) RootCauseCandidates(_ context.Context, _ models.QueryContext) []models.Ranked[models.BaseRecord] {
	f.calls++
	return f.base
}

func (f *fakeRetriever) ActionCandidates(_ context.Context, _ models.QueryContext) []models.Ranked[models.ActionRecord] {
	f.calls++
	return f.actions
}

type fakeAreas struct {
	areas []string
	err   error
	calls int
}

func (f *fakeAreas) ListAreas(_ context.Context) ([]string, error) {
	f.calls++
	return f.areas, f.err
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Ping(_ context.Context) error { return nil }

func (c *memCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*memCache)(nil)

func validQuery() models.QueryContext {
	return models.QueryContext{Area: " Press ", Problem: "motor panas", Category: "Machine", RootCause: "kipas macet"}
}

func newService(gen models.Generator, r *fakeRetriever) *ai.SuggestionService {
	return ai.NewSuggestionService(gen, r, &fakeAreas{}, nil, ai.Options{Timeout: time.Second}, nil)
}

func rankedHistory(t *testing.T, n int) []models.Ranked[models.BaseRecord] {
	t.Helper()
	out := make([]models.Ranked[models.BaseRecord], n)
	for i := range out {
		rec, err := models.NewBaseRecord("Press", fmt.Sprintf("problem %d", i), fmt.Sprintf("cause %d", i), "Machine")
		require.NoError(t, err)
		out[i] = models.Ranked[models.BaseRecord]{Record: rec, Index: i}
	}
	return out
}

// --- SuggestRootCauses ---

func TestSuggestRootCauses_Success(t *testing.T) {
	gen := mock.NewMockProvider("```json\n[\"Bearing aus\", \"Pelumas kurang\"]\n```")
	r := &fakeRetriever{base: rankedHistory(t, 7)}
	svc := ai.NewSuggestionService(gen, r, &fakeAreas{}, nil, ai.Options{Timeout: time.Second, MaxContextRecords: 3}, nil)

	out, err := svc.SuggestRootCauses(context.Background(), validQuery())

	require.NoError(t, err)
	assert.Equal(t, []string{"Bearing aus", "Pelumas kurang"}, out.Causes)
	assert.Empty(t, out.Error)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Area: Press\n")
	assert.Contains(t, calls[0].Prompt, "Problem: motor panas")
	assert.Contains(t, calls[0].Prompt, "(Showing top 3 of 7 records)")
	assert.NotContains(t, calls[0].Prompt, "problem 3")
	assert.Contains(t, calls[0].Instructions, "JSON array")
}

func TestSuggestRootCauses_NoHistoryUsesSentinel(t *testing.T) {
	gen := mock.NewMockProvider(`["A"]`)
	svc := newService(gen, &fakeRetriever{})

	_, err := svc.SuggestRootCauses(context.Background(), validQuery())

	require.NoError(t, err)
	assert.Contains(t, gen.Calls()[0].Prompt, retrieval.NoHistoricalData)
}

// hangingCorpus blocks every read until its context ends.
type hangingCorpus struct{}

func (hangingCorpus) BaseRecords(ctx context.Context, _, _ string) ([]models.BaseRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hangingCorpus) ActionRecords(ctx context.Context, _, _ string) ([]models.ActionRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSuggestRootCauses_StalledCorpusStillAnswers(t *testing.T) {
	gen := mock.NewMockProvider(`["Kipas macet"]`)
	pipeline := retrieval.NewPipeline(hangingCorpus{}, retrieval.NewRanker(nil, nil),
		retrieval.Options{CorpusTimeout: 100 * time.Millisecond}, nil)
	svc := ai.NewSuggestionService(gen, pipeline, &fakeAreas{}, nil, ai.Options{Timeout: time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	got, err := svc.SuggestRootCauses(ctx, validQuery())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, []string{"Kipas macet"}, got.Causes)
	require.Len(t, gen.Calls(), 1)
	assert.Contains(t, gen.Calls()[0].Prompt, retrieval.NoHistoricalData)
}

func TestSuggestActions_StalledCorpusStillAnswers(t *testing.T) {
	gen := mock.NewMockProvider(`{"temporary_actions":["Stop line"],"preventive_actions":["Clean fan"]}`)
	pipeline := retrieval.NewPipeline(hangingCorpus{}, retrieval.NewRanker(nil, nil),
		retrieval.Options{CorpusTimeout: 100 * time.Millisecond}, nil)
	svc := ai.NewSuggestionService(gen, pipeline, &fakeAreas{}, nil, ai.Options{Timeout: time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	_, err := svc.SuggestActions(ctx, validQuery())

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, gen.Calls(), 1)
	assert.Contains(t, gen.Calls()[0].Prompt, retrieval.NoHistoricalData)
}

func TestSuggestRootCauses_MissingFields(t *testing.T) {
	gen := mock.NewMockProvider(`["A"]`)
	r := &fakeRetriever{}
	svc := newService(gen, r)

	_, err := svc.SuggestRootCauses(context.Background(), models.QueryContext{Area: "Press", Problem: "  "})

	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrInvalidInput)
	var inputErr *ai.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, []string{"problem", "category"}, inputErr.Fields)
	assert.Zero(t, r.calls)
	assert.Empty(t, gen.Calls())
}

func TestSuggestRootCauses_GenerationFailureDegrades(t *testing.T) {
	svc := newService(mock.NewFailingProvider(errors.New("quota exceeded")), &fakeRetriever{})

	out, err := svc.SuggestRootCauses(context.Background(), validQuery())

	require.NoError(t, err)
	assert.Equal(t, recovery.SuggestionFailed(), out)
}

func TestSuggestRootCauses_TimeoutDegrades(t *testing.T) {
	svc := ai.NewSuggestionService(mock.NewTimeoutProvider(), &fakeRetriever{}, &fakeAreas{}, nil,
		ai.Options{Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	out, err := svc.SuggestRootCauses(context.Background(), validQuery())

	require.NoError(t, err)
	assert.NotEmpty(t, out.Error)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSuggestRootCauses_PanicDegrades(t *testing.T) {
	svc := newService(mock.NewPanickingProvider(), &fakeRetriever{})

	out, err := svc.SuggestRootCauses(context.Background(), validQuery())

	require.NoError(t, err)
	assert.Equal(t, []string{recovery.SuggestionFailedMessage}, out.Causes)
}

func TestSuggestRootCauses_EmptyOutputDegrades(t *testing.T) {
	svc := newService(mock.NewMockProvider("   "), &fakeRetriever{})

	out, err := svc.SuggestRootCauses(context.Background(), validQuery())

	require.NoError(t, err)
	assert.NotEmpty(t, out.Error)
}

// --- SuggestActions ---

func TestSuggestActions_Success(t *testing.T) {
	rec, err := models.NewBaseRecord("Press", "motor panas", "kipas macet", "Machine")
	require.NoError(t, err)
	act, err := models.NewActionRecord(rec, "matikan mesin", "jadwal PM kipas")
	require.NoError(t, err)

	gen := mock.NewMockProvider(`{"temporary_actions":["Bersihkan kipas"],"preventive_actions":["Cek kipas tiap shift"]}`)
	svc := newService(gen, &fakeRetriever{actions: []models.Ranked[models.ActionRecord]{{Record: act}}})

	out, err := svc.SuggestActions(context.Background(), validQuery())

	require.NoError(t, err)
	assert.Equal(t, []string{"Bersihkan kipas"}, out.TemporaryActions)
	assert.Equal(t, []string{"Cek kipas tiap shift"}, out.PreventiveActions)
	prompt := gen.Calls()[0].Prompt
	assert.Contains(t, prompt, "Root cause: kipas macet")
	assert.Contains(t, prompt, "Temporary Action: matikan mesin")
}

func TestSuggestActions_RequiresRootCause(t *testing.T) {
	q := validQuery()
	q.RootCause = ""
	svc := newService(mock.NewMockProvider("{}"), &fakeRetriever{})

	_, err := svc.SuggestActions(context.Background(), q)

	assert.ErrorIs(t, err, ai.ErrInvalidInput)
	assert.Contains(t, err.Error(), "root_cause")
}

func TestSuggestActions_GenerationFailureDegrades(t *testing.T) {
	svc := newService(mock.NewFailingProvider(ai.ErrProviderUnavailable), &fakeRetriever{})

	out, err := svc.SuggestActions(context.Background(), validQuery())

	require.NoError(t, err)
	assert.Equal(t, recovery.ActionsFailed(), out)
}

// --- ScoreRootCauses ---

func TestScoreRootCauses_Success(t *testing.T) {
	gen := mock.NewMockProvider(`{"scores":[
		{"root_cause":"Bearing aus","spesifisitas":2,"relevansi":2,"kejelasan":2,"actionability":2,"total_score":8,"feedback":"Baik"},
		{"root_cause":"Operator","spesifisitas":0.5,"relevansi":1,"kejelasan":0.5,"actionability":0.5,"total_score":2.5,"feedback":"Terlalu umum"}
	],"summary":"Cukup"}`)
	svc := newService(gen, &fakeRetriever{})

	out, err := svc.ScoreRootCauses(context.Background(), validQuery(), []string{" Bearing aus ", "Operator"})

	require.NoError(t, err)
	require.Len(t, out.Scores, 2)
	assert.Equal(t, "Cukup", out.Summary)
	assert.Contains(t, gen.Calls()[0].Prompt, "1. Bearing aus\n2. Operator")
}

func TestScoreRootCauses_Garbage(t *testing.T) {
	svc := newService(mock.NewMockProvider("garbage"), &fakeRetriever{})

	out, err := svc.ScoreRootCauses(context.Background(), validQuery(), []string{"A", "B"})

	require.NoError(t, err)
	require.Len(t, out.Scores, 2)
	for _, s := range out.Scores {
		assert.Zero(t, s.TotalScore)
		assert.NotEmpty(t, s.Feedback)
	}
}

func TestScoreRootCauses_InvalidInput(t *testing.T) {
	svc := newService(mock.NewMockProvider("{}"), &fakeRetriever{})

	tooMany := make([]string, ai.MaxScoreCauses+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("cause %d", i)
	}

	tests := []struct {
		name   string
		causes []string
	}{
		{"none", nil},
		{"blank entry", []string{"A", "  "}},
		{"too many", tooMany},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ScoreRootCauses(context.Background(), validQuery(), tt.causes)
			assert.ErrorIs(t, err, ai.ErrInvalidInput)
		})
	}
}

// --- MergeRootCauses ---

func TestMergeRootCauses_Success(t *testing.T) {
	items := []models.UserRootCause{
		{RootCause: "Bearing aus", UserID: "u1"},
		{RootCause: "Bearing sudah aus", UserID: "u2"},
		{RootCause: "Belt kendor", UserID: "u3"},
	}
	raw, err := json.Marshal(map[string]any{
		"merged_root_causes": []map[string]any{{
			"merged_root_cause": "Bearing aus",
			"original_data":     items[:2],
		}},
		"individual_root_causes": items[2:],
	})
	require.NoError(t, err)
	gen := mock.NewMockProvider(string(raw))
	svc := newService(gen, &fakeRetriever{})

	out, err := svc.MergeRootCauses(context.Background(), items)

	require.NoError(t, err)
	require.Len(t, out.MergedRootCauses, 1)
	assert.Equal(t, items, out.AllOriginalData)
	assert.Equal(t, 3, out.Count())
	assert.Contains(t, gen.Calls()[0].Prompt, `user_id: "u3"`)
}

func TestMergeRootCauses_FailureKeepsEveryItem(t *testing.T) {
	items := []models.UserRootCause{{RootCause: "A", UserID: "1"}, {RootCause: "B", UserID: "2"}}
	svc := newService(mock.NewFailingProvider(errors.New("network")), &fakeRetriever{})

	out, err := svc.MergeRootCauses(context.Background(), items)

	require.NoError(t, err)
	assert.Empty(t, out.MergedRootCauses)
	assert.Equal(t, items, out.IndividualRootCauses)
	assert.NotEmpty(t, out.Error)
}

func TestMergeRootCauses_InvalidInput(t *testing.T) {
	svc := newService(mock.NewMockProvider("{}"), &fakeRetriever{})

	_, err := svc.MergeRootCauses(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrInvalidInput)

	_, err = svc.MergeRootCauses(context.Background(), []models.UserRootCause{{RootCause: "A"}})
	assert.ErrorIs(t, err, ai.ErrInvalidInput)
	assert.True(t, strings.Contains(err.Error(), "user_id"))
}

// --- Areas ---

func TestAreas_CachesResult(t *testing.T) {
	lister := &fakeAreas{areas: []string{"Press", "Printing"}}
	mc := newMemCache()
	svc := ai.NewSuggestionService(mock.NewMockProvider(""), &fakeRetriever{}, lister, mc, ai.Options{}, nil)

	first, err := svc.Areas(context.Background())
	require.NoError(t, err)
	second, err := svc.Areas(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Press", "Printing"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, lister.calls)
	assert.Contains(t, mc.data, cache.AreasKey())
}

func TestAreas_CacheErrorFallsBackToStore(t *testing.T) {
	lister := &fakeAreas{areas: []string{"Press"}}
	mc := newMemCache()
	mc.getErr = errors.New("redis down")
	svc := ai.NewSuggestionService(mock.NewMockProvider(""), &fakeRetriever{}, lister, mc, ai.Options{}, nil)

	areas, err := svc.Areas(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Press"}, areas)
}

func TestAreas_StoreError(t *testing.T) {
	lister := &fakeAreas{err: errors.New("db down")}
	svc := ai.NewSuggestionService(mock.NewMockProvider(""), &fakeRetriever{}, lister, nil, ai.Options{}, nil)

	_, err := svc.Areas(context.Background())

	assert.Error(t, err)
}

func TestAreas_EmptyIsNotNil(t *testing.T) {
	svc := ai.NewSuggestionService(mock.NewMockProvider(""), &fakeRetriever{}, &fakeAreas{}, nil, ai.Options{}, nil)

	areas, err := svc.Areas(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, areas)
	assert.Empty(t, areas)
}
