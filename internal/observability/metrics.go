package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emomatch",
		Name:      "uploads_total",
		Help:      "Total number of upload requests",
	}, []string{"outcome"})

	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emomatch",
		Name:      "registrations_total",
		Help:      "Total number of emoji records registered",
	})

	RegistrationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emomatch",
		Name:      "registration_failures_total",
		Help:      "Total number of per-file registration failures",
	})

	RecordsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emomatch",
		Name:      "records_pruned_total",
		Help:      "Total number of stale registry records removed",
	})

	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emomatch",
		Name:      "matches_total",
		Help:      "Total number of match requests",
	}, []string{"outcome"})

	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "emomatch",
		Name:      "registry_size",
		Help:      "Number of records currently in the description store",
	})

	ModelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "emomatch",
		Name:      "model_call_duration_seconds",
		Help:      "Duration of external model calls",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"kind"})

	RegistrarCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "emomatch",
		Name:      "registrar_cycle_duration_seconds",
		Help:      "Duration of one registration cycle",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "emomatch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "emomatch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
