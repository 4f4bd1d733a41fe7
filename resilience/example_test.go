package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/backstop/policy"
	"github.com/jonwraymond/backstop/resilience"
)

func ExampleNewManager() {
	m := resilience.NewManager(resilience.ManagerConfig{})
	defer m.Close()

	ctx := context.Background()
	err := m.Execute(ctx, resilience.Call{
		OperationType: "chat.completion",
		Component:     "primary-llm",
	}, func(ctx context.Context) error {
		// Simulated successful backend call
		return nil
	})

	if err == nil {
		fmt.Println("Call succeeded")
	}
	// Output:
	// Call succeeded
}

func ExampleManager_Register() {
	m := resilience.NewManager(resilience.ManagerConfig{})
	defer m.Close()

	m.Register(resilience.Backend{
		Name:             "local-llm",
		MaxConcurrent:    4,
		FailureThreshold: 5,
	})

	status, _ := m.Status("local-llm")
	fmt.Println("Circuit:", status.Circuit.State)
	fmt.Println("Slots:", status.Pool.MaxConcurrent)
	// Output:
	// Circuit: closed
	// Slots: 4
}

func ExampleManager_Execute_retries() {
	reg := policy.NewRegistry(policy.RegistryConfig{})
	reg.Register("embedding", policy.TimeoutPolicy{
		Duration:     time.Second,
		RetryEnabled: true,
		MaxRetries:   2,
		Backoff:      policy.BackoffLinear,
		BaseDelay:    time.Millisecond,
	})

	m := resilience.NewManager(resilience.ManagerConfig{
		Policies: reg,
		Backoff:  resilience.BackoffConfig{MinDelay: time.Millisecond, JitterFactor: 0},
	})
	defer m.Close()

	ctx := context.Background()
	attempts := 0

	err := m.Execute(ctx, resilience.Call{
		OperationType: "embedding",
		Component:     "primary-llm",
	}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if err == nil {
		fmt.Printf("Succeeded after %d attempts\n", attempts)
	}
	// Output:
	// Succeeded after 3 attempts
}

func ExampleManager_Execute_errorBranching() {
	m := resilience.NewManager(resilience.ManagerConfig{
		Defaults: resilience.Backend{FailureThreshold: 1},
	})
	defer m.Close()

	ctx := context.Background()
	boom := errors.New("503 service unavailable")

	// First call fails and opens the circuit.
	_ = m.Execute(ctx, resilience.Call{
		OperationType: "chat.completion",
		Component:     "flaky-llm",
	}, func(ctx context.Context) error {
		return boom
	})

	// Second call is rejected without reaching the backend.
	err := m.Execute(ctx, resilience.Call{
		OperationType: "chat.completion",
		Component:     "flaky-llm",
	}, func(ctx context.Context) error {
		return nil
	})

	fmt.Println("Circuit open:", errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// Circuit open: true
}

func ExampleBackoff_Delay() {
	b := resilience.NewBackoff(resilience.BackoffConfig{
		MinDelay:     100 * time.Millisecond,
		MaxDelay:     time.Second,
		JitterFactor: 0, // Disabled for predictable example
	})

	base := 100 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		fmt.Println(b.Delay(policy.BackoffExponential, attempt, base))
	}
	// Output:
	// 100ms
	// 200ms
	// 400ms
	// 800ms
}
