package invoke

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"toolgate/internal/domain/invocation"
)

// PrometheusRecorder exports gate activity as Prometheus metrics.
// Metrics are registered on a dedicated registry so multiple gates can
// coexist in one process; expose it with
// promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}).
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// attemptsTotal counts started invocation attempts.
	// Labels: dependency
	attemptsTotal *prometheus.CounterVec

	// attemptResults counts finished attempts by classified result.
	// Labels: dependency, class (success|retryable|rate_limited|fatal)
	attemptResults *prometheus.CounterVec

	// executionsTotal counts completed executions by final class.
	// Labels: dependency, class
	executionsTotal *prometheus.CounterVec

	// rateLimitHits counts provider rate-limit signals.
	// Labels: dependency
	rateLimitHits *prometheus.CounterVec

	// rateLimitWait observes the wait honored after a rate-limit
	// signal, in seconds.
	// Labels: dependency
	rateLimitWait *prometheus.HistogramVec

	// circuitTransitions counts breaker state changes.
	// Labels: dependency, to (closed|open|half-open)
	circuitTransitions *prometheus.CounterVec

	// circuitState tracks the current breaker state per dependency.
	// Values: 0=closed, 1=open, 2=half-open
	// Labels: dependency
	circuitState *prometheus.GaugeVec

	// cacheEvents counts idempotency cache lookups.
	// Labels: result (hit|miss)
	cacheEvents *prometheus.CounterVec

	// attemptDuration observes single provider call latency, in
	// seconds.
	// Labels: dependency
	attemptDuration *prometheus.HistogramVec

	// executionDuration observes end-to-end execution latency
	// including backoff sleeps, in seconds.
	// Labels: dependency
	executionDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a PrometheusRecorder with all metrics
// registered on a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_attempts_total",
				Help: "Total invocation attempts started, by dependency.",
			},
			[]string{"dependency"},
		),
		attemptResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_attempt_results_total",
				Help: "Finished invocation attempts by classified result.",
			},
			[]string{"dependency", "class"},
		),
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_executions_total",
				Help: "Completed executions by final outcome class.",
			},
			[]string{"dependency", "class"},
		),
		rateLimitHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_rate_limit_hits_total",
				Help: "Provider rate-limit signals encountered.",
			},
			[]string{"dependency"},
		),
		rateLimitWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_rate_limit_wait_seconds",
				Help:    "Wait imposed by provider rate-limit signals.",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"dependency"},
		),
		circuitTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_circuit_transitions_total",
				Help: "Circuit breaker state transitions by target state.",
			},
			[]string{"dependency", "to"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolgate_circuit_state",
				Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"dependency"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_idempotency_cache_events_total",
				Help: "Idempotency cache lookups by result.",
			},
			[]string{"result"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_attempt_duration_seconds",
				Help:    "Latency of individual provider calls.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"dependency"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_execution_duration_seconds",
				Help:    "End-to-end execution latency including backoff sleeps.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"dependency"},
		),
	}

	r.registry.MustRegister(
		r.attemptsTotal,
		r.attemptResults,
		r.executionsTotal,
		r.rateLimitHits,
		r.rateLimitWait,
		r.circuitTransitions,
		r.circuitState,
		r.cacheEvents,
		r.attemptDuration,
		r.executionDuration,
	)
	return r
}

// Registry returns the recorder's private registry for mounting a
// metrics handler.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// InitDependency pre-creates the dependency's label series so they are
// scraped as zero from startup instead of appearing on first use. The
// circuit state gauge starts at closed.
func (p *PrometheusRecorder) InitDependency(dependency string) {
	p.attemptsTotal.WithLabelValues(dependency)
	p.rateLimitHits.WithLabelValues(dependency)
	p.circuitState.WithLabelValues(dependency).Set(0)
}

func (p *PrometheusRecorder) RecordAttempt(dependency string, _ int) {
	p.attemptsTotal.WithLabelValues(dependency).Inc()
}

func (p *PrometheusRecorder) RecordAttemptResult(dependency string, class invocation.Class, duration time.Duration) {
	p.attemptResults.WithLabelValues(dependency, class.String()).Inc()
	p.attemptDuration.WithLabelValues(dependency).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) RecordRateLimitHit(dependency string, wait time.Duration) {
	p.rateLimitHits.WithLabelValues(dependency).Inc()
	p.rateLimitWait.WithLabelValues(dependency).Observe(wait.Seconds())
}

func (p *PrometheusRecorder) RecordCircuitTransition(dependency, _, to string) {
	p.circuitTransitions.WithLabelValues(dependency, to).Inc()

	var value float64
	switch to {
	case "open":
		value = 1
	case "half-open":
		value = 2
	default:
		value = 0
	}
	p.circuitState.WithLabelValues(dependency).Set(value)
}

func (p *PrometheusRecorder) RecordCacheHit(_ string) {
	p.cacheEvents.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) RecordCacheMiss(_ string) {
	p.cacheEvents.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) RecordExecution(dependency string, outcome invocation.Outcome) {
	p.executionsTotal.WithLabelValues(dependency, outcome.Class.String()).Inc()
	p.executionDuration.WithLabelValues(dependency).Observe(outcome.Duration.Seconds())
}
