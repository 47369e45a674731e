package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Route guard metrics
	GuardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_decisions_total",
			Help: "Route guard decisions by outcome",
		},
		[]string{"outcome"},
	)

	// Session metrics
	SessionLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_logins_total",
			Help: "Session login attempts by method and result",
		},
		[]string{"method", "result"},
	)

	CredentialStoreWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_store_write_failures_total",
			Help: "Credential store writes that failed and were skipped",
		},
		[]string{"key"},
	)

	CredentialStoreReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_store_read_failures_total",
			Help: "Credential store reads that failed or returned malformed data",
		},
		[]string{"key"},
	)

	// Live channel metrics
	LiveMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_messages_received_total",
			Help: "Messages received on the live event channel",
		},
	)

	LiveConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connections_active",
			Help: "Open live event channel connections",
		},
	)

	WebSocketSubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_subscribers_active",
			Help: "Local subscribers connected to the event relay",
		},
	)

	WebSocketMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of messages relayed to local subscribers",
		},
		[]string{"type"},
	)
)
