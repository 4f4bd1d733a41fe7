// Package resilience executes operations against unreliable remote
// backends with bounded time budgets, bounded per-backend concurrency,
// fast failure for known-bad backends, and retry with backoff.
//
// The entry point is a Manager, constructed once at process start and
// injected into callers. For each call the Manager consults the
// backend's circuit breaker, acquires an admission slot from the
// backend's pool, races the operation against a calibrated timeout,
// classifies failures, retries transient ones per the operation type's
// policy, and feeds every outcome back into the calibrator and the
// breaker.
//
//	mgr := resilience.NewManager(resilience.ManagerConfig{})
//	mgr.Register(resilience.Backend{
//	    Name:          "openai-primary",
//	    Family:        calibrate.FamilyOpenAI,
//	    MaxConcurrent: 8,
//	})
//
//	err := mgr.Execute(ctx, resilience.Call{
//	    OperationType: "chat_completion",
//	    Component:     "openai-primary",
//	    Priority:      resilience.PriorityHigh,
//	}, func(ctx context.Context) error {
//	    return client.CreateCompletion(ctx, req)
//	})
//
// Callers branch on the terminal error: a CircuitOpenError means the
// backend is down and higher layers should not retry; a TimeoutError
// means this specific call was slow; a RetryExhaustedError wraps the
// last underlying failure after all retries were used.
//
// Lifecycle events (timeouts, retries, circuit transitions,
// calibration updates) are published to registered Listeners through a
// bounded channel; the core never blocks on a subscriber.
package resilience
