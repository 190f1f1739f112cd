package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Retrieval metrics
	RetrievalDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemba_retrieval_degraded_total",
			Help: "Rankings that fell back to corpus order because the encoder was unavailable",
		},
		[]string{"reason"},
	)

	RetrievalCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemba_retrieval_candidates",
			Help:    "Number of candidates returned by each retrieval operation",
			Buckets: []float64{0, 1, 2, 5, 8, 10, 20},
		},
		[]string{"operation"},
	)

	// Recovery metrics
	RecoveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemba_recovery_total",
			Help: "Structured response recoveries by shape and the tier that produced the result",
		},
		[]string{"shape", "tier"},
	)

	// Generation metrics
	GenerationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemba_generation_requests_total",
			Help: "Total number of generation requests",
		},
		[]string{"provider", "operation", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemba_generation_duration_seconds",
			Help:    "Generation request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"provider", "operation"},
	)

	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gemba_embedding_cache_hits_total",
			Help: "Embedding vectors served from the in-process cache",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gemba_embedding_cache_misses_total",
			Help: "Embedding vectors that had to be requested from the encoder",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemba_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
