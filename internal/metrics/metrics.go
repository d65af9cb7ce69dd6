// Package metrics holds the Prometheus collectors of the planning core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlansTotal counts planning runs by strategy and result.
	PlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replicaplan_plans_total",
		Help: "Total planning runs by strategy and result",
	}, []string{"strategy", "result"})

	// PlanDuration tracks wall time of a planning run.
	PlanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replicaplan_plan_duration_seconds",
		Help:    "Planning run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~32s
	}, []string{"strategy"})

	// PlanSpectralDistance records the final source/target spectral distance.
	PlanSpectralDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replicaplan_plan_spectral_distance",
		Help:    "Spectral distance between source and planned target",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1},
	})

	// PlanCoverageRatio records the share of source types present in a plan.
	PlanCoverageRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replicaplan_plan_coverage_ratio",
		Help:    "Fraction of source resource types covered by the plan",
		Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1},
	})

	// EigenDecompositions counts Laplacian eigen-decompositions performed.
	EigenDecompositions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicaplan_eigen_decompositions_total",
		Help: "Laplacian eigen-decompositions performed",
	})

	// SpectralFailures counts distances replaced by the ceiling value.
	SpectralFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicaplan_spectral_failures_total",
		Help: "Spectral distance computations that fell back to the ceiling value",
	})

	// SpectrumCacheHits counts spectra served from the per-run cache.
	SpectrumCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicaplan_spectrum_cache_hits_total",
		Help: "Spectra served from the per-run spectrum cache",
	})

	// IdenticalGraphShortcuts counts distances answered as 0 because both
	// graphs had the same structure fingerprint.
	IdenticalGraphShortcuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicaplan_identical_graph_shortcuts_total",
		Help: "Spectral distances skipped because both graphs were structurally identical",
	})

	// GreedyEvaluations counts candidate evaluations in greedy rounds.
	GreedyEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicaplan_greedy_evaluations_total",
		Help: "Candidate evaluations performed by the greedy strategy",
	})
)
