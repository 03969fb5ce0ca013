// Package metrics exposes Prometheus instruments for the data access layer.
// Metrics are registered on the default registry and served by /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "painel"

var (
	// FetchAttempts counts failed attempts by dataset and retry class.
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failed_attempts_total",
			Help:      "Failed attempts to read a worksheet, by retry class.",
		},
		[]string{"dataset", "class"},
	)

	// FetchResults counts finished fetches by outcome (fresh, stale, miss).
	FetchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_results_total",
			Help:      "Finished fetches by outcome.",
		},
		[]string{"dataset", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Wall-clock time of one fetch including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"dataset"},
	)

	MemoHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memo_hits_total",
			Help:      "Reads served from the memoization store.",
		},
		[]string{"dataset"},
	)

	PartitionsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partitions_skipped_total",
			Help:      "Partitions left out of an aggregated dataset.",
		},
		[]string{"dataset"},
	)

	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Write-back requests by mode and status.",
		},
		[]string{"dataset", "mode", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open dashboard sessions.",
		},
	)
)
