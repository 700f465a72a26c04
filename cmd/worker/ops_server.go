package main

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	hhttp "toolgate/internal/handler/http"
	workerPkg "toolgate/internal/infra/worker"
	"toolgate/internal/observability/tracing"
)

// opsTimeout bounds the probe, health, and stats endpoints. The pprof
// routes are exempt; a default CPU profile streams for 30 seconds.
const opsTimeout = 10 * time.Second

// newOpsHandler builds the ops listener's handler: probes, the detailed
// health check, the stats snapshot, and optionally the pprof routes.
//
// Endpoints:
//   - GET /health/live   - Liveness probe
//   - GET /health/ready  - Readiness probe
//   - GET /health        - Detailed health with store and breaker checks
//   - GET /stats         - Gate counter snapshot
//   - GET /debug/pprof/* - Profiling (only when ENABLE_PPROF=true)
func newOpsHandler(logger *slog.Logger, components *gateComponents, readiness *workerPkg.Readiness, cfg *workerPkg.WorkerConfig, version string) http.Handler {
	timeout := hhttp.Timeout(opsTimeout)

	mux := http.NewServeMux()
	mux.Handle("/health/live", timeout(&hhttp.LiveHandler{}))
	mux.Handle("/health/ready", timeout(&hhttp.ReadyHandler{Ready: readiness.Ready}))
	mux.Handle("/health", timeout(&hhttp.HealthHandler{
		Version:       version,
		Store:         components.store,
		StoreCapacity: components.capacity,
		Breakers:      components.gate,
		Dependencies:  cfg.Dependencies,
	}))
	mux.Handle("/stats", timeout(&hhttp.StatsHandler{Source: components.stats}))

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		logger.Info("pprof routes enabled")
	}

	// Middleware chain, outermost first
	var handler http.Handler = mux
	handler = hhttp.MetricsMiddleware(handler)
	handler = hhttp.Logging(logger)(handler)
	handler = hhttp.Recover(logger)(handler)
	handler = tracing.Middleware(handler)
	handler = hhttp.RequestID(handler)
	return handler
}
