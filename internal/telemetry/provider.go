// ABOUTME: OpenTelemetry tracer provider exporting hook invocation spans over OTLP/HTTP
// ABOUTME: Spans are batched; Shutdown must run before the process exits to flush them

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies hook processes in exported traces.
const ServiceName = "claude-hooks"

// ShutdownTimeout bounds how long flushing spans may delay the hook's exit.
const ShutdownTimeout = 2 * time.Second

// NewTracerProvider creates a provider that exports to endpoint, a full URL
// such as "http://localhost:4318/v1/traces".
func NewTracerProvider(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Shutdown flushes and stops tp, waiting at most ShutdownTimeout.
func Shutdown(tp *sdktrace.TracerProvider) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return tp.Shutdown(ctx)
}
