package tracing

import (
	"context"
	"errors"
	"testing"

	"toolgate/internal/domain/invocation"
)

func TestStartInvocation_SpanNameAndAttributes(t *testing.T) {
	exporter, tp := installTestTracer(t)

	ctx, span := StartInvocation(context.Background(), "github_api", "create_issue")
	if ctx == nil {
		t.Fatal("expected a context back")
	}

	out := invocation.Success("done")
	out.Attempts = 2
	FinishInvocation(span, out)

	_ = tp.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := spans[0]
	if got.Name != "invoke github_api/create_issue" {
		t.Errorf("expected span name %q, got %q", "invoke github_api/create_issue", got.Name)
	}

	attrs := make(map[string]string, len(got.Attributes))
	for _, attr := range got.Attributes {
		attrs[string(attr.Key)] = attr.Value.Emit()
	}
	if attrs["toolgate.dependency"] != "github_api" {
		t.Errorf("expected toolgate.dependency=github_api, got %q", attrs["toolgate.dependency"])
	}
	if attrs["toolgate.operation"] != "create_issue" {
		t.Errorf("expected toolgate.operation=create_issue, got %q", attrs["toolgate.operation"])
	}
	if attrs["toolgate.class"] != "success" {
		t.Errorf("expected toolgate.class=success, got %q", attrs["toolgate.class"])
	}
	if attrs["toolgate.attempts"] != "2" {
		t.Errorf("expected toolgate.attempts=2, got %q", attrs["toolgate.attempts"])
	}
	if attrs["toolgate.cache_hit"] != "false" {
		t.Errorf("expected toolgate.cache_hit=false, got %q", attrs["toolgate.cache_hit"])
	}
	if _, ok := attrs["error"]; ok {
		t.Error("unexpected error attribute on a successful invocation")
	}
}

func TestFinishInvocation_RecordsFailure(t *testing.T) {
	exporter, tp := installTestTracer(t)

	_, span := StartInvocation(context.Background(), "crm_api", "update_contact")
	FinishInvocation(span, invocation.Fatal(errors.New("contact not found")))

	_ = tp.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := spans[0]
	foundError := false
	for _, attr := range got.Attributes {
		if attr.Key == "error" && attr.Value.AsBool() {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected error attribute on a failed invocation")
	}
	if len(got.Events) == 0 {
		t.Error("expected the failure to be recorded as a span event")
	}
}

func TestFinishInvocation_CacheHit(t *testing.T) {
	exporter, tp := installTestTracer(t)

	_, span := StartInvocation(context.Background(), "outreach_api", "send_sequence")
	out := invocation.Success(map[string]any{"queued": true})
	out.CacheHit = true
	FinishInvocation(span, out)

	_ = tp.ForceFlush(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	for _, attr := range spans[0].Attributes {
		if attr.Key == "toolgate.cache_hit" {
			if !attr.Value.AsBool() {
				t.Error("expected toolgate.cache_hit=true")
			}
			return
		}
	}
	t.Error("toolgate.cache_hit attribute not found")
}
