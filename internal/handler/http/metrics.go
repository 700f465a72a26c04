package http

import (
	"net/http"
	"time"

	"toolgate/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsMiddleware records HTTP request metrics for the ops listener.
// The ops surface has a fixed route set, so raw paths are safe as label
// values. The middleware tracks:
// - In-flight requests (gauge incremented/decremented per request)
// - Request duration
// - Status code distribution
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Track in-flight requests
		metrics.OpsRequestsInFlight.Inc()
		defer metrics.OpsRequestsInFlight.Dec()

		// Wrap response writer to capture the status code
		rw := newStatusRecorder(w)

		// Measure request duration
		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		metrics.RecordOpsRequest(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// MetricsHandler returns an HTTP handler for the Prometheus metrics endpoint.
// Additional gatherers (such as the gate's own registry) are merged with the
// default registry so one scrape covers the whole process.
func MetricsHandler(extra ...prometheus.Gatherer) http.Handler {
	if len(extra) == 0 {
		return promhttp.Handler()
	}

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	gatherers = append(gatherers, extra...)
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}
