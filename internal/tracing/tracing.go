// Package tracing wires OpenTelemetry spans around pipeline stage
// processing, exported over OTLP/HTTP.
package tracing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Manager owns the tracer provider and hands out a Tracer for stage spans.
type Manager struct {
	logger   *logrus.Logger
	provider *trace.TracerProvider
	tracer   oteltrace.Tracer
}

// New builds a Manager. When enabled is false, the returned Manager
// hands out a no-op tracer rather than failing, so callers never need to
// branch on whether tracing is on.
func New(enabled bool, endpoint string, logger *logrus.Logger) (*Manager, error) {
	if !enabled {
		return &Manager{logger: logger, tracer: otel.Tracer("noop")}, nil
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: creating otlp exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName("midi-ingest")),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logger.WithField("endpoint", endpoint).Info("tracing enabled")
	return &Manager{logger: logger, provider: provider, tracer: otel.Tracer("midi-ingest")}, nil
}

// Tracer returns the span-producing Tracer for stage instrumentation.
func (m *Manager) Tracer() oteltrace.Tracer { return m.tracer }

// Shutdown flushes pending spans. Safe to call on a no-op Manager.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
