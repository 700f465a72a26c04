package invoke

import (
	"sync"
	"sync/atomic"
	"time"

	"toolgate/internal/domain/invocation"
)

// StatsRecorder aggregates gate activity into in-memory counters that
// operational endpoints can serve as JSON. All methods are safe for
// concurrent use.
type StatsRecorder struct {
	executions         atomic.Int64
	attempts           atomic.Int64
	successes          atomic.Int64
	failures           atomic.Int64
	rateLimitHits      atomic.Int64
	circuitTransitions atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64

	mu   sync.Mutex
	deps map[string]*dependencyCounters
}

type dependencyCounters struct {
	calls              atomic.Int64
	attempts           atomic.Int64
	successes          atomic.Int64
	rateLimitHits      atomic.Int64
	circuitTransitions atomic.Int64
}

// Stats is a point-in-time snapshot of the gate's counters.
type Stats struct {
	Executions         int64                      `json:"executions"`
	Attempts           int64                      `json:"attempts"`
	Successes          int64                      `json:"successes"`
	Failures           int64                      `json:"failures"`
	RateLimitHits      int64                      `json:"rate_limit_hits"`
	CircuitTransitions int64                      `json:"circuit_transitions"`
	CacheHits          int64                      `json:"cache_hits"`
	CacheMisses        int64                      `json:"cache_misses"`
	CacheHitRatio      float64                    `json:"cache_hit_ratio"`
	Dependencies       map[string]DependencyStats `json:"dependencies"`
}

// DependencyStats is the per-dependency slice of a Stats snapshot.
type DependencyStats struct {
	Calls              int64 `json:"calls"`
	Attempts           int64 `json:"attempts"`
	Successes          int64 `json:"successes"`
	RateLimitHits      int64 `json:"rate_limit_hits"`
	CircuitTransitions int64 `json:"circuit_transitions"`
}

// NewStatsRecorder returns an empty StatsRecorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{deps: make(map[string]*dependencyCounters)}
}

func (s *StatsRecorder) dep(dependency string) *dependencyCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.deps[dependency]
	if !ok {
		c = &dependencyCounters{}
		s.deps[dependency] = c
	}
	return c
}

// Track registers a dependency so it appears in snapshots at zero
// before its first call.
func (s *StatsRecorder) Track(dependency string) {
	s.dep(dependency)
}

func (s *StatsRecorder) RecordAttempt(dependency string, _ int) {
	s.attempts.Add(1)
	s.dep(dependency).attempts.Add(1)
}

func (s *StatsRecorder) RecordAttemptResult(_ string, _ invocation.Class, _ time.Duration) {
	// No-op
}

func (s *StatsRecorder) RecordRateLimitHit(dependency string, _ time.Duration) {
	s.rateLimitHits.Add(1)
	s.dep(dependency).rateLimitHits.Add(1)
}

func (s *StatsRecorder) RecordCircuitTransition(dependency, _, _ string) {
	s.circuitTransitions.Add(1)
	s.dep(dependency).circuitTransitions.Add(1)
}

func (s *StatsRecorder) RecordCacheHit(_ string) {
	s.cacheHits.Add(1)
}

func (s *StatsRecorder) RecordCacheMiss(_ string) {
	s.cacheMisses.Add(1)
}

func (s *StatsRecorder) RecordExecution(dependency string, outcome invocation.Outcome) {
	s.executions.Add(1)
	c := s.dep(dependency)
	c.calls.Add(1)
	if outcome.IsSuccess() {
		s.successes.Add(1)
		c.successes.Add(1)
		return
	}
	s.failures.Add(1)
}

// Snapshot returns a copy of the current counters. Counters keep
// advancing while the snapshot is taken; totals are not guaranteed to
// be mutually consistent under concurrent load.
func (s *StatsRecorder) Snapshot() Stats {
	st := Stats{
		Executions:         s.executions.Load(),
		Attempts:           s.attempts.Load(),
		Successes:          s.successes.Load(),
		Failures:           s.failures.Load(),
		RateLimitHits:      s.rateLimitHits.Load(),
		CircuitTransitions: s.circuitTransitions.Load(),
		CacheHits:          s.cacheHits.Load(),
		CacheMisses:        s.cacheMisses.Load(),
		Dependencies:       make(map[string]DependencyStats),
	}
	if total := st.CacheHits + st.CacheMisses; total > 0 {
		st.CacheHitRatio = float64(st.CacheHits) / float64(total)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range s.deps {
		st.Dependencies[name] = DependencyStats{
			Calls:              c.calls.Load(),
			Attempts:           c.attempts.Load(),
			Successes:          c.successes.Load(),
			RateLimitHits:      c.rateLimitHits.Load(),
			CircuitTransitions: c.circuitTransitions.Load(),
		}
	}
	return st
}
