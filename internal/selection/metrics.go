package selection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SellersSkippedTotal tracks sellers excluded from runs by reason.
var SellersSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "negotiator_sellers_skipped_total",
		Help: "Total number of sellers excluded from runs",
	},
	[]string{"reason"},
)
