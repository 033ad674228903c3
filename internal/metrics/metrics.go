// Package metrics holds the Prometheus collectors, registered on the default
// registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kai"

var (
	// Sends counts finished user turns by outcome: ok, persist_error, reply_error.
	Sends *prometheus.CounterVec

	SendDuration prometheus.Histogram

	StreamChunks prometheus.Counter

	// PersistFailures counts store failures by operation.
	PersistFailures *prometheus.CounterVec

	SessionStarts *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec

	// SafetyFlags counts user messages recorded for review.
	SafetyFlags prometheus.Counter
)

func init() {
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "sends_total",
			Help:      "User messages processed, by outcome",
		},
		[]string{"outcome"},
	)

	SendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "send_duration_seconds",
			Help:      "Time from user message to finished reply",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	StreamChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "stream_chunks_total",
			Help:      "Model text chunks applied to transcripts",
		},
	)

	PersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "failures_total",
			Help:      "Persistence failures by operation",
		},
		[]string{"op"},
	)

	SessionStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "session_starts_total",
			Help:      "Sign-ins that started a session, by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	SafetyFlags = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "flags_total",
			Help:      "User messages flagged for review",
		},
	)

	prometheus.MustRegister(
		Sends,
		SendDuration,
		StreamChunks,
		PersistFailures,
		SessionStarts,
		HTTPRequests,
		SafetyFlags,
	)
}
