// Package metrics declares the Prometheus collectors exposed at /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bizdoc"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// Generations counts LLM calls by document kind and outcome
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "generations_total",
			Help:      "Total number of document generations",
		},
		[]string{"kind", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "generation_duration_seconds",
			Help:      "LLM generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "exports_total",
			Help:      "Total number of document exports",
		},
		[]string{"format", "status"},
	)

	ExportBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "artifact_size_bytes",
			Help:      "Size of exported documents in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"format"},
	)

	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "settlements_total",
			Help:      "Payment settlements by resulting status",
		},
		[]string{"status"},
	)

	RateLimitAllowed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_allowed_total",
			Help:      "Number of allowed requests by limiter type.",
		},
		[]string{"limiter"},
	)

	RateLimitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Number of rejected requests by limiter type.",
		},
		[]string{"limiter"},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "sse_clients",
			Help:      "Connected activity stream clients",
		},
	)
)
