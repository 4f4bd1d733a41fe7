package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta identifies a backend call for telemetry purposes.
type CallMeta struct {
	Component     string // Backend name (required)
	OperationType string // Operation class, e.g. "chat.completion" (optional)
	Priority      string // Scheduling priority (optional)
	OperationID   string // Per-call correlation ID (optional)
}

// SpanName returns the deterministic span name for this call.
// Format: backend.call.<component>.<operation> or backend.call.<component>
func (m CallMeta) SpanName() string {
	if m.OperationType != "" {
		return "backend.call." + m.Component + "." + m.OperationType
	}
	return "backend.call." + m.Component
}

// Tracer wraps OpenTelemetry tracing with backend-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a backend call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("backend.component", meta.Component),
		attribute.Bool("backend.error", false), // Updated in EndSpan on error
	}

	if meta.OperationType != "" {
		attrs = append(attrs, attribute.String("backend.operation", meta.OperationType))
	}
	if meta.Priority != "" {
		attrs = append(attrs, attribute.String("backend.priority", meta.Priority))
	}
	if meta.OperationID != "" {
		attrs = append(attrs, attribute.String("backend.operation_id", meta.OperationID))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("backend.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
