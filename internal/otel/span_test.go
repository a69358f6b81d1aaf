package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, trace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

func TestStartSpan(t *testing.T) {
	t.Parallel()

	t.Run("nil tracer yields a no-op span", func(t *testing.T) {
		t.Parallel()

		ctx, span := StartSpan(context.Background(), nil, "sync.pass")
		require.NotNil(t, ctx)
		assert.False(t, span.SpanContext().IsValid())
		assert.NotPanics(t, func() { span.End() })
	})

	t.Run("records name and attributes", func(t *testing.T) {
		t.Parallel()

		exporter, tp := newTestTracerProvider(t)
		_, span := StartSpan(context.Background(), tp.Tracer("test"), "sync.record",
			trace.WithAttributes(AttrRecordKind.String("vote"), AttrRecordID.String("house-115-1-100")),
		)
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "sync.record", spans[0].Name)
		assert.Contains(t, spans[0].Attributes, AttrRecordKind.String("vote"))
		assert.Contains(t, spans[0].Attributes, AttrRecordID.String("house-115-1-100"))
	})
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	exporter, tp := newTestTracerProvider(t)
	_, span := tp.Tracer("test").Start(context.Background(), "publish")
	RecordError(span, errors.New("submit rejected"))
	RecordError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "operation failed", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
}
