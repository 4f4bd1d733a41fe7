// Package circuit implements a per-backend circuit breaker.
//
// A Breaker counts consecutive failures while closed and opens once
// the threshold is reached, fast-failing every admission check. After
// the recovery timeout it lazily moves to half-open on the next
// admission check and admits a bounded number of trial calls: the
// first success closes the circuit, any failure re-opens it.
package circuit

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is fast-failing all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the backend recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures before
	// opening the circuit.
	// Default: 3
	FailureThreshold int

	// RecoveryTimeout is how long to stay open before allowing trial
	// calls.
	// Default: 30 seconds
	RecoveryTimeout time.Duration

	// HalfOpenBudget is the maximum number of concurrent trial calls
	// while half-open. Further calls are rejected as if open.
	// Default: 1
	HalfOpenBudget int

	// OnChange is called when the circuit state changes.
	OnChange func(from, to State)
}

// Breaker is a failure-counting state machine for one backend.
type Breaker struct {
	config Config

	mu               sync.Mutex
	state            State
	failures         int
	lastFailure      time.Time
	halfOpenInFlight int
}

// NewBreaker creates a new circuit breaker in the closed state.
func NewBreaker(config Config) *Breaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.HalfOpenBudget <= 0 {
		config.HalfOpenBudget = 1
	}

	return &Breaker{
		config: config,
		state:  StateClosed,
	}
}

// Allow reports whether a new attempt may proceed. The second result
// reports that a half-open trial slot was reserved for the caller; a
// true ok must be balanced by exactly one Success, Failure, or Cancel
// call carrying the same trial flag. Attempts admitted while closed
// hold no slot, so their late outcomes never release a trial another
// caller reserved.
func (b *Breaker) Allow() (ok, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateOpen:
		return false, false
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.config.HalfOpenBudget {
			return false, false
		}
		b.halfOpenInFlight++
		return true, true
	default:
		return true, false
	}
}

// Success records a successful attempt. A trial success closes the
// circuit; a success while closed resets the consecutive failure
// count. A late success from before the circuit opened is ignored:
// only the probe outcome decides recovery.
func (b *Breaker) Success(trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		if !trial {
			return
		}
		b.releaseTrialLocked()
		b.failures = 0
		b.transitionLocked(StateClosed)
	}
}

// Failure records a failed attempt and returns the resulting state so
// callers can stop retrying when the circuit opens.
func (b *Breaker) Failure(trial bool) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		b.lastFailure = time.Now()
		if b.failures >= b.config.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		if !trial {
			// Late result from an attempt admitted before opening.
			b.lastFailure = time.Now()
			break
		}
		// Failed trial, go back to open and restart the recovery clock.
		b.releaseTrialLocked()
		b.lastFailure = time.Now()
		b.transitionLocked(StateOpen)
	case StateOpen:
		b.lastFailure = time.Now()
	}
	return b.state
}

// Cancel releases a trial slot reserved by Allow when the guarded
// attempt never ran (pool exhaustion, caller cancellation). It records
// neither success nor failure. Callers that held no trial slot release
// nothing.
func (b *Breaker) Cancel(trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial && b.state == StateHalfOpen {
		b.releaseTrialLocked()
	}
}

// Reset forces the breaker back to closed. Intended for operator use.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.halfOpenInFlight = 0
	if b.state != StateClosed {
		b.transitionLocked(StateClosed)
	}
}

// State returns the current state, applying the lazy open to half-open
// transition if the recovery timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// Snapshot contains the breaker's current statistics.
type Snapshot struct {
	State            State
	Failures         int
	FailureThreshold int
	LastFailure      time.Time
	RecoveryTimeout  time.Duration
	HalfOpenInFlight int
	HalfOpenBudget   int
}

// Snapshot returns a point-in-time view of the breaker.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:            b.currentStateLocked(),
		Failures:         b.failures,
		FailureThreshold: b.config.FailureThreshold,
		LastFailure:      b.lastFailure,
		RecoveryTimeout:  b.config.RecoveryTimeout,
		HalfOpenInFlight: b.halfOpenInFlight,
		HalfOpenBudget:   b.config.HalfOpenBudget,
	}
}

func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.config.RecoveryTimeout {
		b.halfOpenInFlight = 0
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) releaseTrialLocked() {
	if b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	if to == StateHalfOpen {
		b.halfOpenInFlight = 0
	}
	if from != to && b.config.OnChange != nil {
		b.config.OnChange(from, to)
	}
}
