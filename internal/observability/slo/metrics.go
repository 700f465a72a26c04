// Package slo defines service level objectives for the dependencies the gate
// fronts and exposes gauges tracking how each dependency performs against
// them. The worker's stats snapshot job feeds these gauges from the gate's
// aggregated counters.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for guarded dependencies.
// Third-party APIs sit behind retries and circuit breakers, so the targets
// describe post-gate behavior, not raw provider behavior.
const (
	// AvailabilitySLO defines the target success percentage per dependency
	// after retries (99.5% = roughly 3.6 hours of failed calls per month)
	AvailabilitySLO = 99.5

	// ErrorRateSLO defines the maximum acceptable failed-call ratio per
	// dependency (0.5% = 0.005)
	ErrorRateSLO = 0.005

	// RateLimitHitSLO defines the maximum acceptable ratio of attempts that
	// hit a provider rate limit (5% = 0.05)
	RateLimitHitSLO = 0.05

	// AttemptsPerCallSLO defines the maximum acceptable mean attempts per
	// call; sustained values above this mean retries are doing real work
	AttemptsPerCallSLO = 1.5
)

// SLO tracking metrics
// These gauges are updated on the stats snapshot schedule from the gate's
// counters to track whether each dependency is meeting its SLO targets.
var (
	// SLOAvailability tracks the current availability ratio (0-1) per
	// dependency, calculated as: successes / calls
	SLOAvailability = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toolgate_slo_availability_ratio",
			Help: "Current availability ratio per dependency (0-1), target: 0.995",
		},
		[]string{"dependency"},
	)

	// SLOErrorRate tracks the current failed-call ratio (0-1) per
	// dependency, calculated as: (calls - successes) / calls
	SLOErrorRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toolgate_slo_error_rate_ratio",
			Help: "Current error rate ratio per dependency (0-1), target: 0.005",
		},
		[]string{"dependency"},
	)

	// SLORateLimitHitRatio tracks the ratio of attempts that hit a provider
	// rate limit, calculated as: rate_limit_hits / attempts
	SLORateLimitHitRatio = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toolgate_slo_rate_limit_hit_ratio",
			Help: "Ratio of attempts that hit a provider rate limit per dependency (0-1), target: 0.05",
		},
		[]string{"dependency"},
	)

	// SLOAttemptsPerCall tracks the mean number of attempts per call,
	// calculated as: attempts / calls
	SLOAttemptsPerCall = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toolgate_slo_attempts_per_call",
			Help: "Mean attempts per call per dependency, target: 1.5",
		},
		[]string{"dependency"},
	)
)

// UpdateAvailability updates the availability SLO metric for a dependency.
// Call this on the stats snapshot schedule with the calculated ratio.
//
// Example calculation:
//
//	availability := float64(stats.Successes) / float64(stats.Calls)
//	slo.UpdateAvailability("github_api", availability)
func UpdateAvailability(dependency string, ratio float64) {
	SLOAvailability.WithLabelValues(dependency).Set(ratio)
}

// UpdateErrorRate updates the error rate SLO metric for a dependency.
func UpdateErrorRate(dependency string, ratio float64) {
	SLOErrorRate.WithLabelValues(dependency).Set(ratio)
}

// UpdateRateLimitHitRatio updates the rate limit hit ratio for a dependency.
func UpdateRateLimitHitRatio(dependency string, ratio float64) {
	SLORateLimitHitRatio.WithLabelValues(dependency).Set(ratio)
}

// UpdateAttemptsPerCall updates the mean attempts per call for a dependency.
func UpdateAttemptsPerCall(dependency string, mean float64) {
	SLOAttemptsPerCall.WithLabelValues(dependency).Set(mean)
}

// ObserveDependency derives and sets every per-dependency SLO gauge from raw
// gate counters. Ratios whose denominator is zero are left untouched so a
// dependency with no traffic keeps its last known values.
func ObserveDependency(dependency string, calls, attempts, successes, rateLimitHits int64) {
	if calls > 0 {
		availability := float64(successes) / float64(calls)
		UpdateAvailability(dependency, availability)
		UpdateErrorRate(dependency, 1-availability)
		UpdateAttemptsPerCall(dependency, float64(attempts)/float64(calls))
	}
	if attempts > 0 {
		UpdateRateLimitHitRatio(dependency, float64(rateLimitHits)/float64(attempts))
	}
}
