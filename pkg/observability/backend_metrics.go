package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for backend calls.
const (
	OutcomeSuccess        = "success"
	OutcomeServerError    = "server_error"
	OutcomeMalformed      = "malformed"
	OutcomeTransportError = "transport_error"
	OutcomeThrottled      = "throttled"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartpay_backend",
			Name:      "requests_total",
			Help:      "Calls made to the prediction backend by call and outcome",
		},
		[]string{"call", "outcome"},
	)

	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartpay_backend",
			Name:      "request_duration_seconds",
			Help:      "Round trip latency of prediction backend calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"call"},
	)

	WarmupAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smartpay_backend",
			Name:      "warmup_attempts_total",
			Help:      "Backend warm-up probes issued at startup",
		},
	)
)
