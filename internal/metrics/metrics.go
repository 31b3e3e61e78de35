// Package metrics registers the Prometheus metrics exposed by the router.
// Importing it (directly or via blank import) from the server entry point
// registers all collectors before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmbeddingsTotal counts completed /v1/embeddings requests labelled by
	// outcome ("success", "bad_request", "unauthorized", "upstream_error").
	EmbeddingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedrouter_embeddings_requests_total",
			Help: "Total embeddings requests processed by the router.",
		},
		[]string{"status"},
	)

	// EmbeddingsDuration observes end-to-end embeddings request latency,
	// including all sequential inputs and their retries.
	EmbeddingsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedrouter_embeddings_duration_seconds",
			Help:    "End-to-end embeddings request duration in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	// EmbeddingInputs observes the number of input strings per request.
	EmbeddingInputs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedrouter_embedding_inputs",
			Help:    "Input strings per embeddings request.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// UpstreamAttempts counts individual provider calls by outcome
	// ("success", "error"); retries count as separate attempts.
	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedrouter_upstream_attempts_total",
			Help: "Total upstream embedding calls, retries included.",
		},
		[]string{"provider", "outcome"},
	)

	// ProxyRequests counts transparent-proxy requests by method and the
	// upstream status class ("2xx", "4xx", "5xx", "error").
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedrouter_proxy_requests_total",
			Help: "Total requests forwarded through the transparent proxy.",
		},
		[]string{"method", "status"},
	)

	// RateLimitRejections counts requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embedrouter_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		},
	)
)
