package telemetry

import (
	"context"
	"testing"
)

func TestInitDisabledUsesNoopTracerAndShutdown(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if IsEnabled() {
		t.Fatalf("expected telemetry disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestStartSpanWithNoopTracerDoesNotPanic(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()
	if SpanFromContext(ctx) == nil {
		t.Fatalf("expected a span from context")
	}
}

func TestParseProfileTypeRejectsUnknown(t *testing.T) {
	if _, err := parseProfileType("not-a-real-type"); err == nil {
		t.Fatalf("expected error for unknown profile type")
	}
}

func TestInitProfilingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitProfiling: %v", err)
	}
	if IsProfilingEnabled() {
		t.Fatalf("expected profiling disabled")
	}
	if err := shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
