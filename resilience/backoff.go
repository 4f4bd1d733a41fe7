package resilience

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonwraymond/backstop/policy"
)

// BackoffConfig configures retry delay computation.
type BackoffConfig struct {
	// MaxDelay caps the raw delay for every strategy, including the
	// adaptive strategy's growth.
	// Default: 30 seconds
	MaxDelay time.Duration

	// MinDelay is the floor applied after jitter.
	// Default: 1 second
	MinDelay time.Duration

	// JitterFactor is the total width of the random perturbation as a
	// fraction of the delay (the delay moves by up to half of it in
	// either direction). Zero disables jitter.
	// Default: 0.2
	JitterFactor float64

	// rand overrides the random source for tests.
	rand func() float64
}

// Backoff computes retry delays with jitter.
type Backoff struct {
	config BackoffConfig
}

// NewBackoff creates a new backoff calculator.
func NewBackoff(config BackoffConfig) *Backoff {
	// Apply defaults
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.MinDelay <= 0 {
		config.MinDelay = time.Second
	}
	if config.JitterFactor < 0 {
		config.JitterFactor = 0
	}
	if config.rand == nil {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		config.rand = rand.Float64
	}

	return &Backoff{config: config}
}

// Delay returns the wait before retry number attempt+1. Attempt counts
// from zero: the delay after the first failed attempt is Delay(s, 0, base).
func (b *Backoff) Delay(strategy policy.BackoffStrategy, attempt int, base time.Duration) time.Duration {
	var delay time.Duration

	switch strategy {
	case policy.BackoffLinear:
		delay = base * time.Duration(attempt+1)
	case policy.BackoffAdaptive:
		delay = time.Duration(float64(base) * math.Pow(1.8, float64(attempt)))
	default:
		delay = time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	}

	if delay > b.config.MaxDelay || delay <= 0 {
		delay = b.config.MaxDelay
	}

	if b.config.JitterFactor > 0 {
		jitter := float64(delay) * b.config.JitterFactor * (b.config.rand() - 0.5)
		delay += time.Duration(jitter)
	}

	if delay < b.config.MinDelay {
		delay = b.config.MinDelay
	}
	return delay
}
