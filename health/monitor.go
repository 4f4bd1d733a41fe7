package health

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonwraymond/backstop/calibrate"
	"github.com/jonwraymond/backstop/circuit"
	"github.com/jonwraymond/backstop/resilience"
)

// Monitor grades every backend a resilience manager protects. Checks
// read the manager's snapshots and never touch the backend itself, so
// they are cheap enough for tight probe intervals.
type Monitor struct {
	manager *resilience.Manager
}

// NewMonitor creates a monitor over the manager's backends.
func NewMonitor(m *resilience.Manager) *Monitor {
	return &Monitor{manager: m}
}

// Check grades one backend. It returns ErrUnknownBackend when the
// manager has never seen the component.
func (mo *Monitor) Check(component string) (Result, error) {
	status, ok := mo.manager.Status(component)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownBackend, component)
	}
	return grade(component, status), nil
}

// CheckAll grades every registered backend, ordered by component name.
func (mo *Monitor) CheckAll() []Result {
	components := mo.manager.Components()
	sort.Strings(components)

	results := make([]Result, 0, len(components))
	for _, component := range components {
		if status, ok := mo.manager.Status(component); ok {
			results = append(results, grade(component, status))
		}
	}
	return results
}

// grade derives the verdict from a backend's snapshots.
//
// Unhealthy: the circuit is open, so calls fail fast.
// Degraded: the circuit is probing recovery, waiters are queued on
// the pool, or calibration rates the backend poor.
func grade(component string, status resilience.BackendStatus) Result {
	detail := Detail{
		Circuit:     status.Circuit.State.String(),
		Failures:    status.Circuit.Failures,
		ActiveCalls: status.Pool.Active,
		MaxCalls:    status.Pool.MaxConcurrent,
		QueuedCalls: status.Pool.Queued,
		Rejected:    status.Pool.Rejected,
	}
	if status.Calibrated {
		detail.TimeoutMs = status.Calibration.Timeout.Milliseconds()
		detail.Tier = status.Calibration.Tier.String()
		detail.Trend = status.Calibration.Trend.String()
		detail.Confidence = status.Calibration.Confidence
	}

	result := Result{
		Component: component,
		Detail:    detail,
		Checked:   time.Now(),
	}

	switch {
	case status.Circuit.State == circuit.StateOpen:
		result.Status = StatusUnhealthy
		result.Message = "circuit open, calls failing fast"
	case status.Circuit.State == circuit.StateHalfOpen:
		result.Status = StatusDegraded
		result.Message = "circuit probing recovery"
	case status.Pool.Queued > 0:
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("connection pool saturated, %d waiting", status.Pool.Queued)
	case status.Calibrated && status.Calibration.Tier == calibrate.TierPoor:
		result.Status = StatusDegraded
		result.Message = "backend performing poorly"
	default:
		result.Status = StatusHealthy
		result.Message = "backend operational"
	}
	return result
}
