package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/backstop/resilience"
)

// Instrumented wraps a resilience.Manager so every call is traced,
// measured, and logged.
//
// Contract:
//   - Concurrency: Execute is safe for concurrent use.
//   - Context: the span context is propagated into the operation.
//   - Errors: errors from the manager are recorded and propagated
//     unchanged.
type Instrumented struct {
	manager *resilience.Manager
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// Instrument wraps a manager with the Observer's telemetry.
func Instrument(m *resilience.Manager, obs Observer) (*Instrumented, error) {
	if m == nil {
		return nil, ErrNilManager
	}
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return &Instrumented{
		manager: m,
		tracer:  newTracer(obs.Tracer()),
		metrics: metrics,
		logger:  obs.Logger(),
	}, nil
}

// Manager returns the wrapped manager for direct access to status and
// registration.
func (i *Instrumented) Manager() *resilience.Manager {
	return i.manager
}

// Execute runs op through the manager inside a span, recording call
// metrics and a completion log line.
func (i *Instrumented) Execute(ctx context.Context, call resilience.Call, op resilience.Operation) error {
	meta := CallMeta{
		Component:     call.Component,
		OperationType: call.OperationType,
		Priority:      call.Priority.String(),
	}
	if meta.Component == "" {
		return ErrMissingComponent
	}

	ctx, span := i.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := i.manager.Execute(ctx, call, op)

	duration := time.Since(start)
	i.tracer.EndSpan(span, err)
	i.metrics.RecordCall(ctx, meta, duration, err)

	callLogger := i.logger.WithBackend(meta)
	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}

	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		callLogger.Error(ctx, "backend call failed", fields...)
	} else {
		callLogger.Info(ctx, "backend call completed", fields...)
	}

	return err
}
