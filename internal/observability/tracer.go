// Package observability wires the scheduler's debug event stream (spec §5,
// internal/scheduler.EventSink) to real telemetry backends: OpenTelemetry
// trace spans per node execution and Prometheus counters/histograms for
// node, frame, and budget-provider activity.
//
// Grounded directly on hector's pkg/observability package: tracer.go's
// InitGlobalTracer/GetTracer (OTLP gRPC exporter, resource/service-name
// tagging, ratio-based sampling) and metrics.go's Metrics type (per-domain
// CounterVec/HistogramVec families registered on a private
// prometheus.Registry, nil-receiver-safe Record* methods, a promhttp
// Handler for scraping).
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig configures span export (spec §4.10: "OTLP for production,
// stdout for --verbose local runs").
type TracerConfig struct {
	Enabled      bool
	Verbose      bool
	EndpointURL  string
	SamplingRate float64
	ServiceName  string
}

// InitTracerProvider builds and installs a global TracerProvider per cfg.
// Disabled configs get a no-op provider so call sites never need a nil
// check.
func InitTracerProvider(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), nil
	}
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "smithers"
	}

	var exporter sdktrace.SpanExporter
	var err error
	if cfg.Verbose {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.EndpointURL),
			otlptracegrpc.WithInsecure(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("observability: create span exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// GetTracer returns a named tracer off the currently installed provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
