package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"toolgate/internal/observability/metrics"
)

func TestMetricsMiddleware(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	paths := []string{"/health", "/health/live", "/stats", "/metrics"}

	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %s failed with status %d", path, rec.Code)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("request %s: body %q, want %q", path, rec.Body.String(), "OK")
		}
	}
}

// TestMetricsMiddleware_StatusCodes tests that different status codes pass
// through the recorder unchanged.
func TestMetricsMiddleware_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"success 200", http.StatusOK},
		{"service unavailable 503", http.StatusServiceUnavailable},
		{"server error 500", http.StatusInternalServerError},
		{"gateway timeout 504", http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, rec.Code)
			}
		})
	}
}

// TestMetricsMiddleware_InFlight tests that the in-flight gauge rises during
// a request and falls back once it completes.
func TestMetricsMiddleware_InFlight(t *testing.T) {
	baseline := testutil.ToFloat64(metrics.OpsRequestsInFlight)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(metrics.OpsRequestsInFlight)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if during != baseline+1 {
		t.Errorf("in-flight during request = %v, want %v", during, baseline+1)
	}
	if after := testutil.ToFloat64(metrics.OpsRequestsInFlight); after != baseline {
		t.Errorf("in-flight after request = %v, want %v", after, baseline)
	}
}

func TestMetricsHandler(t *testing.T) {
	handler := MetricsHandler()

	if handler == nil {
		t.Fatal("MetricsHandler() returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status OK; got %v", rr.Code)
	}

	// Should contain prometheus metrics format
	body := rr.Body.String()
	if body == "" {
		t.Error("metrics endpoint returned empty body")
	}
}

func TestMetricsHandler_MergedGatherers(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "toolgate_test_merge_total",
		Help: "Test counter for gatherer merging.",
	})
	reg.MustRegister(counter)
	counter.Inc()

	handler := MetricsHandler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status OK; got %v", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "toolgate_test_merge_total 1") {
		t.Error("extra gatherer's metric missing from scrape")
	}
	// The default registry's collectors must still be served
	if !strings.Contains(body, "go_goroutines") {
		t.Error("default registry metrics missing from merged scrape")
	}
}

func BenchmarkMetricsMiddleware(b *testing.B) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	paths := []string{
		"/health",
		"/health/ready",
		"/stats",
		"/metrics",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		path := paths[i%len(paths)]
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}
}
