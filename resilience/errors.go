package resilience

import (
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks. The executor returns the typed
// error structs below; each matches its sentinel.
var (
	// ErrCircuitOpen is returned when a backend is fast-failing.
	ErrCircuitOpen = errFixed("resilience: circuit breaker is open")

	// ErrTimeout is returned when an attempt exceeds its time budget.
	ErrTimeout = errFixed("resilience: operation timed out")

	// ErrPoolExhausted is returned when the wait for an admission slot
	// timed out.
	ErrPoolExhausted = errFixed("resilience: admission pool exhausted")

	// ErrRetryExhausted is returned when all retries are used up.
	ErrRetryExhausted = errFixed("resilience: retries exhausted")
)

type errFixed string

func (e errFixed) Error() string { return string(e) }

// CircuitOpenError reports that a call was rejected without attempting
// the operation because the backend's circuit is open.
type CircuitOpenError struct {
	Component string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("resilience: circuit open for backend %q", e.Component)
}

// Is matches ErrCircuitOpen.
func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// TimeoutError reports that one attempt exceeded its allotted budget.
type TimeoutError struct {
	Component     string
	OperationType string
	Elapsed       time.Duration
	Limit         time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("resilience: %s on backend %q timed out after %v (limit %v)",
		e.OperationType, e.Component, e.Elapsed, e.Limit)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// PoolExhaustedError reports that the wait for a concurrency slot
// itself timed out. The operation was never attempted.
type PoolExhaustedError struct {
	Component string
	Waited    time.Duration
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("resilience: admission pool for backend %q exhausted after waiting %v",
		e.Component, e.Waited)
}

// Is matches ErrPoolExhausted.
func (e *PoolExhaustedError) Is(target error) bool { return target == ErrPoolExhausted }

// RetryExhaustedError wraps the last underlying error after every
// permitted attempt failed.
type RetryExhaustedError struct {
	Component string
	Attempts  int
	Err       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("resilience: backend %q failed after %d attempts: %v",
		e.Component, e.Attempts, e.Err)
}

// Unwrap exposes the final underlying error.
func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// Is matches ErrRetryExhausted.
func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }
