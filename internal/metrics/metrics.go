// Package metrics exposes the prometheus instrumentation shared across
// the applier, reconciler and rollout tracker, scraped by the read
// server's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ApplyDuration records wall-clock time for a single Applier.Apply
	// call, labeled by region and outcome ("Applied"/"Skipped"/"Error").
	ApplyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shipcat",
		Name:      "apply_duration_seconds",
		Help:      "Duration of a single service apply, by region and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"region", "outcome"})

	// ReconcileOutcomes counts per-service reconcile results, labeled by
	// region and outcome ("applied"/"skipped"/"ignored"/"failed").
	ReconcileOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shipcat",
		Name:      "reconcile_outcomes_total",
		Help:      "Count of reconcile outcomes by region and result.",
	}, []string{"region", "outcome"})

	// ReconcileDuration records wall-clock time for a full Reconciler.Run
	// pass over a region.
	ReconcileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shipcat",
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of a full reconcile pass, by region.",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
	}, []string{"region"})

	// RolloutWaitSeconds records how long the rollout tracker actually
	// waited for a Deployment/StatefulSet to become ready, labeled by
	// result ("complete"/"timeout"/"cancelled"/"error").
	RolloutWaitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shipcat",
		Name:      "rollout_wait_seconds",
		Help:      "Time spent waiting for a rollout to complete, by result.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(ApplyDuration, ReconcileOutcomes, ReconcileDuration, RolloutWaitSeconds)
}

// ObserveApply records one Apply call's duration and outcome.
func ObserveApply(region, outcome string, d time.Duration) {
	ApplyDuration.WithLabelValues(region, outcome).Observe(d.Seconds())
}

// ObserveReconcileOutcome increments the per-service reconcile counter.
func ObserveReconcileOutcome(region, outcome string) {
	ReconcileOutcomes.WithLabelValues(region, outcome).Inc()
}

// ObserveReconcileDuration records one full reconcile pass's duration.
func ObserveReconcileDuration(region string, d time.Duration) {
	ReconcileDuration.WithLabelValues(region).Observe(d.Seconds())
}

// ObserveRolloutWait records how long a rollout wait actually took.
func ObserveRolloutWait(result string, d time.Duration) {
	RolloutWaitSeconds.WithLabelValues(result).Observe(d.Seconds())
}
