package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records backend call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed backend call with duration and
	// error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordTimeout counts an attempt that exceeded its budget.
	RecordTimeout(ctx context.Context, component string)

	// RecordRetry counts a scheduled retry.
	RecordRetry(ctx context.Context, component string)

	// RecordCircuitChange counts a circuit breaker transition.
	RecordCircuitChange(ctx context.Context, component, from, to string)

	// RecordCalibratedTimeout reports the current adaptive timeout for
	// a backend.
	RecordCalibratedTimeout(ctx context.Context, component string, timeout time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	timeoutCount metric.Int64Counter
	retryCount   metric.Int64Counter
	circuitCount metric.Int64Counter
	durationHist metric.Float64Histogram
	calibratedMs metric.Float64Gauge
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"backend.call.total",
		metric.WithDescription("Total number of backend calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"backend.call.errors",
		metric.WithDescription("Total number of failed backend calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	timeoutCount, err := meter.Int64Counter(
		"backend.call.timeouts",
		metric.WithDescription("Total number of timed-out attempts"),
		metric.WithUnit("{timeout}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"backend.call.retries",
		metric.WithDescription("Total number of scheduled retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	circuitCount, err := meter.Int64Counter(
		"backend.circuit.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"backend.call.duration_ms",
		metric.WithDescription("Backend call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	calibratedMs, err := meter.Float64Gauge(
		"backend.timeout.calibrated_ms",
		metric.WithDescription("Current adaptive timeout per backend in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		timeoutCount: timeoutCount,
		retryCount:   retryCount,
		circuitCount: circuitCount,
		durationHist: durationHist,
		calibratedMs: calibratedMs,
	}, nil
}

// RecordCall records metrics for a completed backend call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("backend.component", meta.Component),
	}
	if meta.OperationType != "" {
		attrs = append(attrs, attribute.String("backend.operation", meta.OperationType))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordTimeout(ctx context.Context, component string) {
	m.timeoutCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend.component", component),
	))
}

func (m *metricsImpl) RecordRetry(ctx context.Context, component string) {
	m.retryCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend.component", component),
	))
}

func (m *metricsImpl) RecordCircuitChange(ctx context.Context, component, from, to string) {
	m.circuitCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend.component", component),
		attribute.String("circuit.from", from),
		attribute.String("circuit.to", to),
	))
}

func (m *metricsImpl) RecordCalibratedTimeout(ctx context.Context, component string, timeout time.Duration) {
	m.calibratedMs.Record(ctx, float64(timeout.Milliseconds()), metric.WithAttributes(
		attribute.String("backend.component", component),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error)      {}
func (noopMetrics) RecordTimeout(context.Context, string)                            {}
func (noopMetrics) RecordRetry(context.Context, string)                              {}
func (noopMetrics) RecordCircuitChange(context.Context, string, string, string)     {}
func (noopMetrics) RecordCalibratedTimeout(context.Context, string, time.Duration)  {}
