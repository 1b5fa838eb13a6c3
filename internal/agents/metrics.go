package agents

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnDurationSeconds tracks agent turn latency by role.
	TurnDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "negotiator_agent_turn_duration_seconds",
			Help:    "Duration of agent turns including provider retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"role"},
	)

	// TurnErrorsTotal tracks agent turn failures by role.
	TurnErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_agent_turn_errors_total",
			Help: "Total number of failed agent turns",
		},
		[]string{"role"},
	)

	// OffersExtractedTotal tracks offers recovered from seller output.
	OffersExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiator_offers_extracted_total",
		Help: "Total number of offers extracted from seller responses",
	})

	// OffersClampedTotal tracks offers pulled back into inventory bounds.
	OffersClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiator_offers_clamped_total",
		Help: "Total number of extracted offers clamped to seller bounds",
	})
)
