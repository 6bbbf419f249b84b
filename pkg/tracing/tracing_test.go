package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracerDisabled(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "false")
	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil || tracer == nil {
		t.Fatal("expected tracer provider")
	}
}

func TestInitTracerEnabledWithStubExporter(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	orig := newTraceExporter
	defer func() { newTraceExporter = orig }()

	stub := &stubExporter{}
	newTraceExporter = func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		stub.endpoint = endpoint
		return stub, nil
	}

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer == nil {
		t.Fatal("expected tracer")
	}
	if stub.endpoint != "collector:4317" {
		t.Fatalf("expected endpoint to be propagated, got %s", stub.endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

type stubExporter struct {
	endpoint string
}

func (s *stubExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (s *stubExporter) Shutdown(ctx context.Context) error {
	return nil
}

func TestInitTracerExporterError(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "true")

	orig := newTraceExporter
	defer func() { newTraceExporter = orig }()
	newTraceExporter = func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial failed")
	}

	tp, tracer, err := InitTracer(context.Background())
	if err == nil || !strings.Contains(err.Error(), "create trace exporter") {
		t.Fatalf("expected wrapped exporter error, got %v", err)
	}
	if tp != nil || tracer != nil {
		t.Fatal("expected nil provider on error")
	}
}

func TestSampleRatio(t *testing.T) {
	cases := map[string]float64{
		"":     1,
		"0.25": 0.25,
		"0":    0,
		"1.5":  1,
		"abc":  1,
	}
	for raw, want := range cases {
		t.Setenv("TRACE_SAMPLE_RATIO", raw)
		if got := sampleRatio(); got != want {
			t.Fatalf("TRACE_SAMPLE_RATIO=%q: got %v, want %v", raw, got, want)
		}
	}
}

func TestInitTracerDisabledHonoursZeroRatio(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("TRACE_SAMPLE_RATIO", "0")

	_, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := tracer.Start(context.Background(), "root")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Fatal("expected root span to be dropped at ratio 0")
	}
}
