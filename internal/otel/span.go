// Package otel holds span helpers and the attribute keys shared by legisync traces.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on sync and client spans.
const (
	AttrPassID       = attribute.Key("sync.pass_id")
	AttrRecordKind   = attribute.Key("record.kind")
	AttrRecordID     = attribute.Key("record.id")
	AttrRecordAction = attribute.Key("record.action")
	AttrTarget       = attribute.Key("client.target")
	AttrCandidates   = attribute.Key("sync.candidates")
)

// StartSpan starts a span on tracer, or returns the context's current span when tracer
// is nil.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks it failed. The status description stays
// generic; the error text lives in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
