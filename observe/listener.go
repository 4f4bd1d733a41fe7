package observe

import (
	"context"

	"github.com/jonwraymond/backstop/resilience"
)

// Telemetry bridges resilience events into structured logs and
// metrics. Register it via resilience.ManagerConfig.Listeners.
//
// Contract:
//   - Concurrency: safe for concurrent use; the dispatcher invokes it
//     from a single goroutine.
//   - Errors: best-effort, never panics.
type Telemetry struct {
	logger  Logger
	metrics Metrics
}

// NewTelemetry creates a Telemetry listener from an Observer.
func NewTelemetry(obs Observer) (*Telemetry, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		logger:  obs.Logger(),
		metrics: metrics,
	}, nil
}

var _ resilience.Listener = (*Telemetry)(nil)

func (t *Telemetry) OnTimeout(e resilience.TimeoutEvent) {
	ctx := context.Background()
	t.metrics.RecordTimeout(ctx, e.Component)
	t.logger.Warn(ctx, "attempt timed out",
		Field{Key: "backend.component", Value: e.Component},
		Field{Key: "backend.operation", Value: e.OperationType},
		Field{Key: "backend.operation_id", Value: e.OperationID},
		Field{Key: "elapsed_ms", Value: e.Elapsed.Milliseconds()},
		Field{Key: "limit_ms", Value: e.Limit.Milliseconds()},
	)
}

func (t *Telemetry) OnTimeoutWarning(e resilience.TimeoutWarningEvent) {
	ctx := context.Background()
	t.logger.Warn(ctx, "attempt approaching timeout",
		Field{Key: "backend.component", Value: e.Component},
		Field{Key: "backend.operation", Value: e.OperationType},
		Field{Key: "backend.operation_id", Value: e.OperationID},
		Field{Key: "elapsed_ms", Value: e.Elapsed.Milliseconds()},
		Field{Key: "remaining_ms", Value: e.Remaining.Milliseconds()},
	)
}

func (t *Telemetry) OnRetry(e resilience.RetryEvent) {
	ctx := context.Background()
	t.metrics.RecordRetry(ctx, e.Component)

	fields := []Field{
		{Key: "backend.component", Value: e.Component},
		{Key: "backend.operation_id", Value: e.OperationID},
		{Key: "attempt", Value: e.Attempt},
		{Key: "delay_ms", Value: e.Delay.Milliseconds()},
	}
	if e.Err != nil {
		fields = append(fields, Field{Key: "error", Value: e.Err.Error()})
	}
	t.logger.Info(ctx, "retry scheduled", fields...)
}

func (t *Telemetry) OnCircuitChange(e resilience.CircuitEvent) {
	ctx := context.Background()
	t.metrics.RecordCircuitChange(ctx, e.Component, e.From.String(), e.To.String())
	t.logger.Warn(ctx, "circuit state changed",
		Field{Key: "backend.component", Value: e.Component},
		Field{Key: "circuit.from", Value: e.From.String()},
		Field{Key: "circuit.to", Value: e.To.String()},
	)
}

func (t *Telemetry) OnCalibrationUpdate(e resilience.CalibrationEvent) {
	ctx := context.Background()
	t.metrics.RecordCalibratedTimeout(ctx, e.Component, e.Timeout)
	t.logger.Debug(ctx, "timeout recalibrated",
		Field{Key: "backend.component", Value: e.Component},
		Field{Key: "timeout_ms", Value: e.Timeout.Milliseconds()},
		Field{Key: "tier", Value: e.Tier.String()},
		Field{Key: "trend", Value: e.Trend.String()},
		Field{Key: "confidence", Value: e.Confidence},
	)
}
