// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for claim engine workflows.
var (
	// workflowDuration tracks the latency of engine workflow calls.
	workflowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridhold_claim_workflow_duration_seconds",
		Help:    "Histogram of claim engine workflow latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// workflowOutcomes counts workflow results by operation and status.
	workflowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridhold_claim_workflow_outcomes_total",
		Help: "Total number of claim engine workflow outcomes",
	}, []string{"op", "status"})

	// cachedClaims tracks the number of claims currently held in the cache.
	cachedClaims = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridhold_claims_cached",
		Help: "Number of claims currently held in the in-memory cache",
	})
)

// observe records workflow latency; intended for use with defer.
func observe(op string, start time.Time) {
	workflowDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// recordOutcome counts one workflow result.
func recordOutcome(op string, st Status) {
	workflowOutcomes.WithLabelValues(op, st.String()).Inc()
}
