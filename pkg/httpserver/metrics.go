package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveStreamClients tracks attached event stream consumers by transport.
	ActiveStreamClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "negotiator_active_stream_clients",
		Help: "Number of attached event stream clients",
	}, []string{"transport"})
)
