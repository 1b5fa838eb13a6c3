package decision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks engine invocations by result.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_decisions_total",
			Help: "Total number of decision engine outcomes",
		},
		[]string{"result"},
	)

	// OffersRejectedTotal tracks offers failing the validity predicate.
	OffersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiator_decision_offers_rejected_total",
			Help: "Total number of offers rejected by the validity predicate",
		},
		[]string{"reason"},
	)

	// WinningScore tracks the score of accepted offers.
	WinningScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "negotiator_decision_winning_score",
		Help:    "Weighted score of winning offers",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)
