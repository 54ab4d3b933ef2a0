package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"

	"github.com/stickerart/sticker-gallery-backend/internal/config"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestSetupTracingDisabledIsNoop(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupTracing(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("disabled tracing must not replace the global provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupTracingInstallsProvider(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	cfg := config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "sticker-gallery-backend",
		SampleRatio: 1,
	}
	shutdown, err := SetupTracing(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	if otel.GetTracerProvider() == before {
		t.Fatal("global provider not replaced")
	}
	fields := otel.GetTextMapPropagator().Fields()
	var hasTraceparent bool
	for _, f := range fields {
		if f == "traceparent" {
			hasTraceparent = true
		}
	}
	if !hasTraceparent {
		t.Fatalf("unexpected propagator fields %v", fields)
	}

	// Span creation must not panic even without a live collector, and the
	// sampled span must carry a valid context.
	ctx, span := otel.Tracer("test").Start(context.Background(), "smoke")
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Fatal("expected a recording span context")
	}
	span.End()
}

func TestSetupTracingSecureTLS(t *testing.T) {
	restoreGlobals(t)

	cfg := config.OTELConfig{Enabled: true, Endpoint: "collector:4317", ServiceName: "svc"}
	shutdown, err := SetupTracing(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("SetupTracing with TLS: %v", err)
	}
	_ = shutdown(context.Background())
}

func TestSetupTracingExporterErrorPropagates(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	orig := newExporter
	t.Cleanup(func() { newExporter = orig })
	newExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter boom")
	}

	_, err := SetupTracing(context.Background(), config.OTELConfig{Enabled: true, Endpoint: "x:1", Insecure: true}, "test")
	if err == nil {
		t.Fatal("expected exporter error")
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("globals must be untouched on failure")
	}
}

func TestSetupTracingResourceErrorPropagates(t *testing.T) {
	restoreGlobals(t)

	orig := newResource
	t.Cleanup(func() { newResource = orig })
	newResource = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("resource boom")
	}

	_, err := SetupTracing(context.Background(), config.OTELConfig{Enabled: true, Endpoint: "x:1", Insecure: true}, "test")
	if err == nil {
		t.Fatal("expected resource error")
	}
}
