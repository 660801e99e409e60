// Package otelhelper bootstraps OTLP tracing for automation executions.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared by the engine and the step loop.
const (
	AutomationIDKey    = "stepflow.automation.id"
	AutomationTitleKey = "stepflow.automation.title"
	ExecutionIDKey     = "stepflow.execution.id"
	StepIDKey          = "stepflow.step.id"
	StepTypeKey        = "stepflow.step.type"
	StepIndexKey       = "stepflow.step.index"
	ErrorKindKey       = "stepflow.error.kind"
	ServiceIDKey       = "stepflow.service.id"
)

// ShutdownFunc flushes buffered spans; call it before process exit.
type ShutdownFunc func(ctx context.Context) error

// Setup installs a global tracer provider exporting over OTLP/HTTP and
// returns a tracer for the service together with its shutdown hook. Exporter
// endpoint and headers come from the standard OTEL_* environment variables.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func Setup(ctx context.Context, serviceName string) (trace.Tracer, ShutdownFunc, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
