package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordFailure marks the span as failed and tags it with the error kind so
// traces can be filtered by failure class. Safe on a no-op span.
func RecordFailure(span trace.Span, kind, message string) {
	span.SetStatus(codes.Error, message)
	span.SetAttributes(attribute.String(ErrorKindKey, kind))
	span.AddEvent("step_failed", trace.WithAttributes(
		attribute.String(ErrorKindKey, kind),
	))
}
