package http

import (
	"fmt"
	"net/http"

	"toolgate/internal/handler/http/respond"
	"toolgate/internal/usecase/invoke"
)

// StatsSource provides a point-in-time snapshot of gate activity.
type StatsSource interface {
	Snapshot() invoke.Stats
}

// StatsHandler serves the gate's in-memory counters as JSON. It gives
// operators a quick view of per-dependency call volumes, rate limit hits,
// and cache effectiveness without a Prometheus query.
type StatsHandler struct {
	Source StatsSource
}

// ServeHTTP writes the current stats snapshot.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		respond.Error(w, http.StatusServiceUnavailable, fmt.Errorf("stats not configured"))
		return
	}

	// Counters move constantly; never let a proxy serve a stale snapshot
	w.Header().Set("Cache-Control", "no-cache")
	respond.JSON(w, http.StatusOK, h.Source.Snapshot())
}
