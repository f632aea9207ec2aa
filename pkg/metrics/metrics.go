package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatTurnCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turn_count",
			Help: "Total number of processed chat turns",
		},
		[]string{"intent", "outcome"}, // outcome: ok, error, clarify
	)

	MailProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_provider_latency_ms",
			Help:    "Mail provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"operation", "status"},
	)

	ModelCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_call_latency_ms",
			Help:    "Language model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"task", "status"},
	)

	GateTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_gate_transitions",
			Help: "Confirmation gate state transitions",
		},
		[]string{"transition"}, // stage, confirm, cancel, abandon, timeout, fail
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordChatTurn(intent, outcome string) {
	ChatTurnCount.WithLabelValues(intent, outcome).Inc()
}

func RecordMailProviderLatency(operation, status string, duration time.Duration) {
	MailProviderLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

func RecordModelCallLatency(task, status string, duration time.Duration) {
	ModelCallLatency.WithLabelValues(task, status).Observe(float64(duration.Milliseconds()))
}

func RecordGateTransition(transition string) {
	GateTransitionCount.WithLabelValues(transition).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
