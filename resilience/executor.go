package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonwraymond/backstop/calibrate"
	"github.com/jonwraymond/backstop/circuit"
	"github.com/jonwraymond/backstop/policy"
	"github.com/jonwraymond/backstop/pool"
)

// Operation is the opaque callable the resilience layer executes. It
// must honor ctx cancellation: when an attempt times out, ctx is
// cancelled and the operation is expected to abandon its work.
type Operation func(ctx context.Context) error

// Call identifies one invocation against a backend.
type Call struct {
	// OperationType selects the timeout policy, e.g. "chat_completion".
	OperationType string

	// Component names the target backend.
	Component string

	// Priority is the scheduling hint.
	// Default: PriorityNormal
	Priority Priority

	// RequestBytes is the approximate request payload size, if the
	// caller knows it. It is recorded with every outcome sample.
	RequestBytes int

	// Metadata is an optional bag the caller can thread through for
	// its own correlation; the core does not interpret it.
	Metadata map[string]any
}

// Execute runs op against the named backend under the full resilience
// stack: circuit breaker gate, pool admission, calibrated per-attempt
// timeout, retry with backoff, and outcome feedback. Exactly one
// terminal error is returned; intermediate retry failures surface only
// as events.
func (m *Manager) Execute(ctx context.Context, call Call, op Operation) error {
	opID := uuid.NewString()
	pol := m.policies.Resolve(call.OperationType)
	b := m.backend(call.Component)

	admitted, trial := b.breaker.Allow()
	if !admitted {
		return &CircuitOpenError{Component: call.Component}
	}

	waitStart := time.Now()
	if err := b.pool.Acquire(ctx, call.Priority.queueRank()); err != nil {
		// The attempt never ran; a reserved half-open trial slot must
		// be handed back.
		b.breaker.Cancel(trial)
		if errors.Is(err, pool.ErrExhausted) {
			return &PoolExhaustedError{Component: call.Component, Waited: time.Since(waitStart)}
		}
		return err
	}
	defer b.pool.Release()

	maxRetries := pol.MaxRetries
	if !pol.RetryEnabled {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			admitted, trial = b.breaker.Allow()
			if !admitted {
				// The breaker opened mid-retry (possibly from another
				// call's failures). Propagate the last real error.
				return lastErr
			}
		}

		limit := m.attemptTimeout(call, pol, attempt)
		started := time.Now()
		err := m.runAttempt(ctx, call, op, opID, pol, limit)
		elapsed := time.Since(started)

		if err == nil {
			m.calibrator.Record(call.Component, calibrate.Sample{
				Timestamp:    time.Now(),
				Latency:      elapsed,
				Success:      true,
				RequestBytes: call.RequestBytes,
			})
			b.breaker.Success(trial)
			return nil
		}

		if ctx.Err() != nil {
			// Caller cancellation is not a backend failure.
			b.breaker.Cancel(trial)
			return ctx.Err()
		}

		var timedOut bool
		var tErr *TimeoutError
		if errors.As(err, &tErr) {
			timedOut = true
			m.dispatch.publish(TimeoutEvent{
				OperationID:   opID,
				Component:     call.Component,
				OperationType: call.OperationType,
				Elapsed:       tErr.Elapsed,
				Limit:         tErr.Limit,
			})
		}

		m.calibrator.Record(call.Component, calibrate.Sample{
			Timestamp:    time.Now(),
			Latency:      elapsed,
			TimedOut:     timedOut,
			RequestBytes: call.RequestBytes,
		})
		state := b.breaker.Failure(trial)
		lastErr = err

		if !m.classify(err) {
			// Non-retryable: propagated unchanged after one attempt.
			return err
		}
		if attempt >= maxRetries {
			return &RetryExhaustedError{
				Component: call.Component,
				Attempts:  attempt + 1,
				Err:       lastErr,
			}
		}
		if state == circuit.StateOpen {
			return lastErr
		}

		delay := m.backoff.Delay(pol.Backoff, attempt, pol.BaseDelay)
		m.dispatch.publish(RetryEvent{
			OperationID: opID,
			Component:   call.Component,
			Attempt:     attempt + 1,
			Delay:       delay,
			Err:         err,
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attemptTimeout computes the budget for one attempt: the calibrated
// (or env-pinned) base, stretched on retries and scaled by priority.
func (m *Manager) attemptTimeout(call Call, pol policy.TimeoutPolicy, attempt int) time.Duration {
	base := m.calibrator.Timeout(call.Component)
	if pol.Pinned {
		base = pol.Duration
	}

	d := float64(base) * (1 + 0.5*float64(attempt)) * call.Priority.timeoutFactor()
	return time.Duration(d)
}

// runAttempt races op against the attempt budget. The losing side is
// actively cancelled through the attempt context rather than ignored.
func (m *Manager) runAttempt(ctx context.Context, call Call, op Operation, opID string, pol policy.TimeoutPolicy, limit time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	if pol.WarningThreshold > 0 && pol.WarningThreshold < 1 {
		warnAt := time.Duration(float64(limit) * pol.WarningThreshold)
		warn := time.AfterFunc(warnAt, func() {
			m.dispatch.publish(TimeoutWarningEvent{
				OperationID:   opID,
				Component:     call.Component,
				OperationType: call.OperationType,
				Elapsed:       warnAt,
				Remaining:     limit - warnAt,
			})
		})
		defer warn.Stop()
	}

	started := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- op(attemptCtx)
	}()

	timeoutErr := func() error {
		return &TimeoutError{
			Component:     call.Component,
			OperationType: call.OperationType,
			Elapsed:       time.Since(started),
			Limit:         limit,
		}
	}

	select {
	case err := <-done:
		// An operation that observed the attempt deadline itself still
		// counts as a timeout, not a generic failure.
		if errors.Is(err, context.DeadlineExceeded) && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return timeoutErr()
		}
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return timeoutErr()
	}
}
