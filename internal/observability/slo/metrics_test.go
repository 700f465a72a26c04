package slo

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	metric := &io_prometheus_client.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func TestSLOConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"AvailabilitySLO", AvailabilitySLO, 99.5},
		{"ErrorRateSLO", ErrorRateSLO, 0.005},
		{"RateLimitHitSLO", RateLimitHitSLO, 0.05},
		{"AttemptsPerCallSLO", AttemptsPerCallSLO, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.value, tt.expected)
			}
		})
	}
}

func TestUpdateAvailability(t *testing.T) {
	// Reset metric before test
	SLOAvailability.WithLabelValues("github_api").Set(0)

	testValue := 0.997
	UpdateAvailability("github_api", testValue)

	got := gaugeValue(t, SLOAvailability.WithLabelValues("github_api"))
	if got != testValue {
		t.Errorf("SLOAvailability = %v, want %v", got, testValue)
	}
}

func TestUpdateErrorRate(t *testing.T) {
	// Reset metric before test
	SLOErrorRate.WithLabelValues("crm_api").Set(0)

	testValue := 0.003
	UpdateErrorRate("crm_api", testValue)

	got := gaugeValue(t, SLOErrorRate.WithLabelValues("crm_api"))
	if got != testValue {
		t.Errorf("SLOErrorRate = %v, want %v", got, testValue)
	}
}

func TestUpdateRateLimitHitRatio(t *testing.T) {
	// Reset metric before test
	SLORateLimitHitRatio.WithLabelValues("outreach_api").Set(0)

	testValue := 0.02
	UpdateRateLimitHitRatio("outreach_api", testValue)

	got := gaugeValue(t, SLORateLimitHitRatio.WithLabelValues("outreach_api"))
	if got != testValue {
		t.Errorf("SLORateLimitHitRatio = %v, want %v", got, testValue)
	}
}

func TestUpdateAttemptsPerCall(t *testing.T) {
	// Reset metric before test
	SLOAttemptsPerCall.WithLabelValues("github_api").Set(0)

	testValue := 1.25
	UpdateAttemptsPerCall("github_api", testValue)

	got := gaugeValue(t, SLOAttemptsPerCall.WithLabelValues("github_api"))
	if got != testValue {
		t.Errorf("SLOAttemptsPerCall = %v, want %v", got, testValue)
	}
}

func TestObserveDependency(t *testing.T) {
	ObserveDependency("anthropic_messages", 100, 120, 98, 6)

	if got := gaugeValue(t, SLOAvailability.WithLabelValues("anthropic_messages")); got != 0.98 {
		t.Errorf("availability = %v, want 0.98", got)
	}
	if got := gaugeValue(t, SLOErrorRate.WithLabelValues("anthropic_messages")); got != 1-0.98 {
		t.Errorf("error rate = %v, want 0.02", got)
	}
	if got := gaugeValue(t, SLOAttemptsPerCall.WithLabelValues("anthropic_messages")); got != 1.2 {
		t.Errorf("attempts per call = %v, want 1.2", got)
	}
	if got := gaugeValue(t, SLORateLimitHitRatio.WithLabelValues("anthropic_messages")); got != 0.05 {
		t.Errorf("rate limit hit ratio = %v, want 0.05", got)
	}
}

func TestObserveDependency_NoTraffic(t *testing.T) {
	// Seed known values, then observe a dependency with zero counters.
	UpdateAvailability("idle_api", 0.42)
	UpdateRateLimitHitRatio("idle_api", 0.42)

	ObserveDependency("idle_api", 0, 0, 0, 0)

	if got := gaugeValue(t, SLOAvailability.WithLabelValues("idle_api")); got != 0.42 {
		t.Errorf("availability = %v, want unchanged 0.42", got)
	}
	if got := gaugeValue(t, SLORateLimitHitRatio.WithLabelValues("idle_api")); got != 0.42 {
		t.Errorf("rate limit hit ratio = %v, want unchanged 0.42", got)
	}
}

func TestMetricsAreRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		SLOAvailability,
		SLOErrorRate,
		SLORateLimitHitRatio,
		SLOAttemptsPerCall,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		select {
		case d := <-desc:
			if d == nil {
				t.Error("metric descriptor is nil")
			}
		default:
			t.Error("no descriptor received")
		}
	}
}

func TestSLOTargetsAreReasonable(t *testing.T) {
	// Availability should be between 90% and 100%
	if AvailabilitySLO < 90.0 || AvailabilitySLO > 100.0 {
		t.Errorf("AvailabilitySLO = %v, should be between 90 and 100", AvailabilitySLO)
	}

	// Error rate should be less than 1%
	if ErrorRateSLO < 0 || ErrorRateSLO > 0.01 {
		t.Errorf("ErrorRateSLO = %v, should be between 0 and 0.01 (1%%)", ErrorRateSLO)
	}

	// Rate limit hits should stay under 10% of attempts
	if RateLimitHitSLO < 0 || RateLimitHitSLO > 0.1 {
		t.Errorf("RateLimitHitSLO = %v, should be between 0 and 0.1 (10%%)", RateLimitHitSLO)
	}

	// Mean attempts per call should sit between one attempt and the
	// typical retry ceiling
	if AttemptsPerCallSLO <= 1.0 || AttemptsPerCallSLO > 3.0 {
		t.Errorf("AttemptsPerCallSLO = %v, should be between 1 and 3", AttemptsPerCallSLO)
	}
}
