package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withSpanRecorder installs a recording tracer provider globally for one test.
func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpanRecordsUnderTracerScope(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, span := StartSpan(context.Background(), "engine.process_query")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if got := ended[0].Name(); got != "engine.process_query" {
		t.Errorf("span name = %q, want engine.process_query", got)
	}
	if got := ended[0].InstrumentationScope().Name; got != tracerName {
		t.Errorf("scope = %q, want %q", got, tracerName)
	}
}

func TestCorrelationIDMatchesTraceID(t *testing.T) {
	withSpanRecorder(t)

	ctx, span := StartSpan(context.Background(), "engine.process_query")
	defer span.End()

	cid := CorrelationID(ctx)
	if cid == "" {
		t.Fatal("expected a correlation id inside a span")
	}
	if want := span.SpanContext().TraceID().String(); cid != want {
		t.Errorf("correlation id = %q, want trace id %q", cid, want)
	}
}

func TestCorrelationIDEmptyOutsideSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("correlation id = %q, want empty outside a span", got)
	}
}
