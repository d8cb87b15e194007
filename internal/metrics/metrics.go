package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttemptsTotal tracks every HTTP attempt issued by the retry loop
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retryfetch_attempts_total",
			Help: "Total number of request attempts",
		},
		[]string{"host", "outcome"},
	)

	// FetchRetriesTotal tracks attempts that were followed by a backoff wait
	FetchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retryfetch_retries_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"host", "kind"},
	)

	// FetchFailuresTotal tracks terminal failures returned to callers
	FetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retryfetch_terminal_failures_total",
			Help: "Total number of requests that ended in a terminal error",
		},
		[]string{"host", "kind"},
	)

	// BackoffSeconds tracks the computed backoff delays
	BackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retryfetch_backoff_seconds",
			Help:    "Backoff delay between attempts in seconds",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 30},
		},
	)

	// ErrorsLoggedTotal tracks entries appended to the error log
	ErrorsLoggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retryfetch_errors_logged_total",
			Help: "Total number of error log entries",
		},
		[]string{"kind"},
	)

	// ErrorsPersistedTotal tracks severe entries written to the durable slot
	ErrorsPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retryfetch_errors_persisted_total",
			Help: "Total number of error log entries persisted",
		},
	)

	// PersistFailuresTotal tracks swallowed persistence failures
	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retryfetch_persist_failures_total",
			Help: "Total number of failed persistence operations",
		},
		[]string{"op"},
	)

	// LogBufferSize tracks the in-memory error log length
	LogBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retryfetch_log_buffer_entries",
			Help: "Number of entries currently held in the error log buffer",
		},
	)
)
