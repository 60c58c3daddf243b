package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/louisbranch/photos/internal/platform/otel"
)

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := otel.StartSpanWithTracer(context.Background(), tp.Tracer("test"), "seed.insert",
		attribute.String("photo.caption", "Jaipur"))
	otel.EndSpan(span, errors.New("constraint failed"))

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "seed.insert" {
		t.Fatalf("expected span name seed.insert, got %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", ended[0].Status().Code)
	}
	if len(ended[0].Events()) == 0 {
		t.Fatal("expected recorded error event")
	}
}

func TestEndSpan_OkLeavesStatusUnset(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := otel.StartSpanWithTracer(context.Background(), tp.Tracer("test"), "schema.apply")
	otel.EndSpan(span, nil)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Unset {
		t.Fatalf("expected unset status, got %v", ended[0].Status().Code)
	}
}

func TestStartSpan_NoopProvider(t *testing.T) {
	ctx, span := otel.StartSpan(context.Background(), "noop")
	if ctx == nil {
		t.Fatal("expected context")
	}
	otel.EndSpan(span, nil)
}
