// Package exporters builds the OpenTelemetry exporters behind the
// observer's tracing and metrics modes.
//
// Modes mirror the observer configuration: "otlp" ships to a
// collector over gRPC, "stdout" prints to the process output,
// "prometheus" (metrics only) serves a scrape registry, and "none"
// or an empty mode discards everything while keeping the pipeline
// shape intact.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownMode indicates a mode the factory does not build.
	ErrUnknownMode = errors.New("exporters: unknown mode")

	// ErrNoEndpoint indicates the otlp mode was selected without a
	// collector endpoint in the environment.
	ErrNoEndpoint = errors.New("exporters: otlp endpoint not configured")
)

// otlpEndpoint looks up the collector endpoint for one signal. The
// generic variable wins over the signal-specific one, matching the
// OTel SDK's own resolution order.
func otlpEndpoint(signal string) (string, bool) {
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		return v, true
	}
	v := os.Getenv("OTEL_EXPORTER_OTLP_" + signal + "_ENDPOINT")
	return v, v != ""
}

// NewTracingExporter builds the span exporter for a tracing mode.
func NewTracingExporter(ctx context.Context, mode string) (sdktrace.SpanExporter, error) {
	switch mode {
	case "otlp":
		if _, ok := otlpEndpoint("TRACES"); !ok {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ErrNoEndpoint)
		}
		return otlptracegrpc.New(ctx)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	}
	return nil, fmt.Errorf("%w: tracing %q", ErrUnknownMode, mode)
}

// NewMetricsReader builds the metrics reader for a metrics mode.
func NewMetricsReader(ctx context.Context, mode string) (sdkmetric.Reader, error) {
	switch mode {
	case "otlp":
		if _, ok := otlpEndpoint("METRICS"); !ok {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ErrNoEndpoint)
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "prometheus":
		return prometheus.New()
	case "stdout":
		return stdoutReader(os.Stdout)
	case "none", "":
		return stdoutReader(io.Discard)
	}
	return nil, fmt.Errorf("%w: metrics %q", ErrUnknownMode, mode)
}

func stdoutReader(w io.Writer) (sdkmetric.Reader, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("stdout metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}
