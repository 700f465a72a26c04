// Package http provides the worker's operational HTTP surface. It includes
// liveness and readiness probes, a detailed health check endpoint, the gate
// stats snapshot handler, metrics collection, and the middleware the ops
// listener is wrapped in.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"toolgate/pkg/idempotency"

	"github.com/sony/gobreaker"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`    // Status of each check item
	Version   string                 `json:"version"`   // Application version
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string                 `json:"status"`            // "healthy", "degraded" or "unhealthy"
	Message string                 `json:"message,omitempty"` // Optional status message
	Details map[string]interface{} `json:"details,omitempty"` // Optional additional details
}

// BreakerInspector defines the interface for reading a dependency's circuit
// breaker state. This allows the health check to report breaker positions
// without depending on the full gate implementation.
type BreakerInspector interface {
	// BreakerState returns the current circuit state for the dependency.
	BreakerState(dependency string) gobreaker.State
}

// HealthHandler handles health check endpoint requests.
// It checks the idempotency store and returns detailed health status.
// It also reports per-dependency circuit breaker positions for operational
// monitoring.
type HealthHandler struct {
	Version string

	// Idempotency store (optional)
	Store         idempotency.Store // Result cache backing the gate
	StoreCapacity int               // Entry bound the store evicts at

	// Circuit breakers (optional)
	Breakers     BreakerInspector // Gate to read breaker states from
	Dependencies []string         // Dependencies to report breakers for
}

// ServeHTTP performs health checks and returns the worker health status.
// It checks idempotency store occupancy and circuit breaker positions.
// Returns 200 OK if healthy, or 503 Service Unavailable if any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	allHealthy := true

	// Idempotency store check
	if h.Store != nil {
		storeCheck := h.checkStore(ctx)
		checks["idempotency_store"] = storeCheck
		if storeCheck.Status == "unhealthy" {
			allHealthy = false
		}
	} else {
		checks["idempotency_store"] = CheckStatus{
			Status:  "unhealthy",
			Message: "not configured",
		}
		allHealthy = false
	}

	// Circuit breaker check
	if h.Breakers != nil && len(h.Dependencies) > 0 {
		checks["circuit_breakers"] = h.checkBreakers()
		// An open breaker is not considered unhealthy; the gate is doing
		// its job and the position is reported for operators
	}

	// Overall status
	// "degraded" is a warning state, not a failure - system is still operational
	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkStore checks the idempotency store and returns occupancy statistics.
func (h *HealthHandler) checkStore(ctx context.Context) CheckStatus {
	entries, err := h.Store.Len(ctx)
	if err != nil {
		return CheckStatus{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}

	details := map[string]interface{}{
		"entries":  entries,
		"capacity": h.StoreCapacity,
	}

	// Guard against zero division when the capacity bound is not configured
	if h.StoreCapacity == 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "store capacity not configured",
			Details: details,
		}
	}

	// Calculate utilization percentage
	utilizationPercent := float64(entries) / float64(h.StoreCapacity) * 100
	details["utilization_percent"] = utilizationPercent

	// Check if the store is near capacity; eviction starts dropping the
	// oldest results once the bound is hit
	if utilizationPercent >= 80.0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "idempotency store utilization above 80%",
			Details: details,
		}
	}

	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// checkBreakers reports the circuit breaker position for each configured
// dependency.
//
// Breaker health is reported as "degraded" at worst because:
// - An open circuit means the gate is shielding a failing dependency
// - Calls to the other dependencies keep flowing
// - The position is informational, not a failure of the worker itself
func (h *HealthHandler) checkBreakers() CheckStatus {
	details := make(map[string]interface{})

	anyOpen := false
	for _, dependency := range h.Dependencies {
		state := h.Breakers.BreakerState(dependency)
		details[dependency] = state.String()
		if state == gobreaker.StateOpen {
			anyOpen = true
		}
	}

	if anyOpen {
		return CheckStatus{
			Status:  "degraded",
			Message: "one or more circuits open",
			Details: details,
		}
	}

	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// ReadyHandler handles Kubernetes readiness probe requests.
// It reports whether the worker has finished starting up and is consuming
// work.
type ReadyHandler struct {
	Ready func() bool
}

// ServeHTTP performs readiness checks and returns 200 OK if ready,
// or 503 Service Unavailable if the worker is not ready.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Ready == nil {
		http.Error(w, "readiness not configured", http.StatusServiceUnavailable)
		return
	}

	if !h.Ready() {
		http.Error(w, "worker not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler handles Kubernetes liveness probe requests.
// It performs a lightweight check to verify the worker is responsive.
type LiveHandler struct{}

// ServeHTTP performs a simple liveness check and always returns 200 OK
// if the worker is running and able to respond.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
