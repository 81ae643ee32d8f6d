// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConnectionRequestsTotal tracks connection request transitions by the
	// status they land in (pending on create, accepted/rejected on respond).
	ConnectionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connection_requests_total",
			Help: "Connection request state transitions",
		},
		[]string{"status"},
	)

	// MessagesTotal tracks messages sent by sender role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages sent",
		},
		[]string{"role"},
	)

	// UnreadResetsTotal tracks read acknowledgements.
	UnreadResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unread_resets_total",
			Help: "Total conversation read acknowledgements",
		},
	)

	// EngagementsStartedTotal tracks mentorship engagements created.
	EngagementsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagements_started_total",
			Help: "Total mentorship engagements started",
		},
	)

	// SessionsExpiredTotal tracks sessions transitioned by the sweep.
	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total sessions expired by the sweep",
		},
	)

	// SweepDuration tracks expiration sweep pass duration.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Expiration sweep pass duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
