package negotiation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks finished runs by terminal status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_runs_total",
			Help: "Total number of finished negotiation runs",
		},
		[]string{"status"},
	)

	// RunDurationSeconds tracks end-to-end run duration.
	RunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "negotiator_run_duration_seconds",
		Help:    "Duration of negotiation runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	// RoundsPerRun tracks how many rounds runs take to decide.
	RoundsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "negotiator_rounds_per_run",
		Help:    "Rounds completed before a run terminated",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
	})

	// EventsEmittedTotal tracks emitted events by type.
	EventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_events_emitted_total",
			Help: "Total number of run events emitted",
		},
		[]string{"type"},
	)

	// AgentErrorsTotal tracks agent failures surfaced as error events.
	AgentErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_agent_errors_total",
			Help: "Total number of agent errors surfaced on event streams",
		},
		[]string{"agent"},
	)

	// SubscribersDroppedTotal tracks slow consumers disconnected by the broker.
	SubscribersDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negotiator_subscribers_dropped_total",
		Help: "Total number of event subscribers dropped for falling behind",
	})
)
