package resilience

import (
	"testing"
	"time"

	"github.com/jonwraymond/backstop/policy"
)

func noJitter() *Backoff {
	return NewBackoff(BackoffConfig{MinDelay: time.Millisecond, JitterFactor: 0})
}

func TestBackoff_Linear(t *testing.T) {
	b := noJitter()

	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second} {
		got := b.Delay(policy.BackoffLinear, attempt, time.Second)
		if got != want {
			t.Errorf("linear Delay(attempt=%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestBackoff_Exponential(t *testing.T) {
	b := noJitter()

	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		got := b.Delay(policy.BackoffExponential, attempt, time.Second)
		if got != want {
			t.Errorf("exponential Delay(attempt=%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestBackoff_AdaptiveCap(t *testing.T) {
	b := NewBackoff(BackoffConfig{MaxDelay: 30 * time.Second, MinDelay: time.Millisecond, JitterFactor: 0})

	// 3000ms x 1.8^10 is far past the cap; the delay must equal the
	// cap, not grow unbounded.
	got := b.Delay(policy.BackoffAdaptive, 10, 3*time.Second)
	if got != 30*time.Second {
		t.Errorf("adaptive Delay(attempt=10) = %v, want cap 30s", got)
	}

	// And stay there on later attempts.
	if later := b.Delay(policy.BackoffAdaptive, 20, 3*time.Second); later != 30*time.Second {
		t.Errorf("adaptive Delay(attempt=20) = %v, want cap 30s", later)
	}
}

func TestBackoff_AdaptiveGrowth(t *testing.T) {
	b := noJitter()

	first := b.Delay(policy.BackoffAdaptive, 0, time.Second)
	second := b.Delay(policy.BackoffAdaptive, 1, time.Second)
	if first != time.Second {
		t.Errorf("adaptive Delay(attempt=0) = %v, want 1s", first)
	}
	if second < first || second > 2*time.Second {
		t.Errorf("adaptive Delay(attempt=1) = %v, want ~1.8s", second)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{JitterFactor: 0.2, MinDelay: time.Millisecond})

	base := 10 * time.Second
	lo := time.Duration(float64(base) * 0.9)
	hi := time.Duration(float64(base) * 1.1)
	for i := 0; i < 100; i++ {
		got := b.Delay(policy.BackoffLinear, 0, base)
		if got < lo || got > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", got, lo, hi)
		}
	}
}

func TestBackoff_Floor(t *testing.T) {
	b := NewBackoff(BackoffConfig{JitterFactor: 0})

	// Default floor is one second.
	got := b.Delay(policy.BackoffLinear, 0, 10*time.Millisecond)
	if got != time.Second {
		t.Errorf("Delay() = %v, want floor 1s", got)
	}
}

func TestBackoff_DeterministicJitter(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		JitterFactor: 0.2,
		MinDelay:     time.Millisecond,
		rand:         func() float64 { return 1.0 },
	})

	// rand()=1.0 pushes the delay up by exactly half the factor.
	got := b.Delay(policy.BackoffLinear, 0, 10*time.Second)
	if got != 11*time.Second {
		t.Errorf("Delay() = %v, want 11s", got)
	}
}
