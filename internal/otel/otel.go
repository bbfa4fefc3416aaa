// Package otel wires OpenTelemetry tracing for the demo host: an OTLP/HTTP
// exporter when configured, a no-op provider otherwise, and an echo
// middleware that spans every request.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ignitergo/connectors/internal/config"
)

// NewTracerProvider builds a sdktrace.TracerProvider exporting to
// cfg.ExporterEndpoint, or a no-op trace.TracerProvider if tracing is
// disabled. The returned shutdown func is always safe to call.
func NewTracerProvider(ctx context.Context, cfg config.OtelConfig) (trace.TracerProvider, func(context.Context) error, error) {
	if !cfg.Enabled() {
		return trace.NewNoopTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.ExporterEndpoint))
	if err != nil {
		return nil, nil, fmt.Errorf("otel: create exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("otel: create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)

	return tp, tp.Shutdown, nil
}
