package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	hhttp "toolgate/internal/handler/http"
)

// newMetricsHandler builds the Prometheus listener's handler. The gate's
// private registry is merged with the default registry, so a single
// scrape covers gate, worker job, and process metrics.
//
// Endpoints:
//   - GET /metrics - Prometheus exposition for every registry
func newMetricsHandler(gateRegistry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", hhttp.MetricsHandler(gateRegistry))
	return mux
}
