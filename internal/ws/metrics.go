package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowstated_ws_active_sessions",
		Help: "Number of live WebSocket sessions.",
	})

	broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowstated_ws_broadcast_deliveries_total",
		Help: "Messages delivered to sessions via broadcast.",
	})

	sessionCloses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowstated_ws_session_closes_total",
		Help: "Closed WebSocket sessions by reason.",
	}, []string{"reason"})
)
