package health

import "time"

// Status grades a backend's condition.
type Status int

const (
	// StatusHealthy means calls to the backend flow normally.
	StatusHealthy Status = iota
	// StatusDegraded means calls still flow but with reduced quality:
	// the circuit is probing recovery, waiters are queued, or the
	// backend is rated poor.
	StatusDegraded
	// StatusUnhealthy means calls fail fast.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Detail carries the snapshot numbers behind a verdict.
type Detail struct {
	Circuit     string `json:"circuit"`
	Failures    int    `json:"failures"`
	ActiveCalls int    `json:"active_calls"`
	MaxCalls    int    `json:"max_calls"`
	QueuedCalls int    `json:"queued_calls"`
	Rejected    int64  `json:"rejected"`

	// Calibration fields are zero until the backend has enough
	// samples to calibrate.
	TimeoutMs  int64   `json:"timeout_ms,omitempty"`
	Tier       string  `json:"tier,omitempty"`
	Trend      string  `json:"trend,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Result is the verdict for one backend.
type Result struct {
	Component string
	Status    Status
	Message   string
	Detail    Detail
	Checked   time.Time
}

// Overall folds per-backend results into one status: any unhealthy
// backend wins, then any degraded one. No backends means healthy.
func Overall(results []Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		if r.Status > overall {
			overall = r.Status
		}
	}
	return overall
}
