// Package metrics provides Prometheus metrics for linkage runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal tracks finished linkage runs by mode and status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkage",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of linkage runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	// PhaseDuration tracks time spent in each pipeline phase
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "linkage",
			Subsystem: "run",
			Name:      "phase_duration_seconds",
			Help:      "Duration of pipeline phases in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"phase"},
	)

	// CandidatePairs tracks the size of the blocked candidate set per run
	CandidatePairs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "linkage",
			Subsystem: "blocking",
			Name:      "candidate_pairs",
			Help:      "Number of candidate pairs produced by blocking",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		},
	)

	// MatchesTotal tracks scored pairs that passed the threshold
	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkage",
			Subsystem: "cluster",
			Name:      "matches_total",
			Help:      "Total number of pairs at or above the match threshold",
		},
	)

	// ClustersTotal tracks formed clusters
	ClustersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkage",
			Subsystem: "cluster",
			Name:      "clusters_total",
			Help:      "Total number of clusters formed by mode",
		},
		[]string{"mode"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
