package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerateTotal tracks successful generate calls.
	GenerateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiator_provider_generate_total",
		Help: "Total number of successful provider generate calls",
	})

	// GenerateErrorsTotal tracks failed generate calls by error kind.
	GenerateErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_provider_generate_errors_total",
			Help: "Total number of failed provider calls",
		},
		[]string{"kind"},
	)

	// GenerateDurationSeconds tracks end-to-end generate latency including retries.
	GenerateDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "negotiator_provider_generate_duration_seconds",
		Help:    "Duration of provider generate calls including retries",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// RetriesTotal tracks retry attempts by operation.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_provider_retries_total",
			Help: "Total number of provider retry attempts",
		},
		[]string{"operation"},
	)

	// CacheHitsTotal tracks deterministic generate-cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiator_provider_cache_hits_total",
		Help: "Total number of generate cache hits",
	})
)
