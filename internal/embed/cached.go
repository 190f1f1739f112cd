package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kiranshivaraju/gemba/internal/metrics"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Cached memoizes the vectors of an underlying encoder. Vectors depend only on
// the model and the text, so the cache is shared across requests.
type Cached struct {
	next  models.Encoder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps next with an LRU cache holding up to size vectors.
func NewCached(next models.Encoder, size int) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Name() string { return c.next.Name() }

// Encode returns vectors in the order of texts, requesting only uncached
// texts from the underlying encoder, each distinct text once.
func (c *Cached) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	pending := make(map[string][]int)
	var misses []string

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		if _, seen := pending[t]; !seen {
			misses = append(misses, t)
		}
		pending[t] = append(pending[t], i)
	}

	metrics.EmbeddingCacheHits.Add(float64(len(texts) - countIndexes(pending)))
	if len(misses) == 0 {
		return out, nil
	}
	metrics.EmbeddingCacheMisses.Add(float64(len(misses)))

	vecs, err := c.next.Encode(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("%s returned %d vectors for %d texts", c.next.Name(), len(vecs), len(misses))
	}

	for i, t := range misses {
		c.cache.Add(t, vecs[i])
		for _, idx := range pending[t] {
			out[idx] = vecs[i]
		}
	}
	return out, nil
}

// Len reports the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

func countIndexes(m map[string][]int) int {
	n := 0
	for _, idx := range m {
		n += len(idx)
	}
	return n
}
