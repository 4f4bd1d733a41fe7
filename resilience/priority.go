package resilience

// Priority is the scheduling hint for one call. It controls both the
// admission queue position and the attempt time budget: high-priority
// calls jump the queue and get a longer budget, low-priority calls get
// a tighter one.
type Priority int

const (
	// PriorityNormal is the default.
	PriorityNormal Priority = iota
	// PriorityLow is for best-effort background work.
	PriorityLow
	// PriorityHigh is for latency-sensitive interactive calls.
	PriorityHigh
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// timeoutFactor scales the attempt budget by priority.
func (p Priority) timeoutFactor() float64 {
	switch p {
	case PriorityHigh:
		return 1.5
	case PriorityLow:
		return 0.8
	default:
		return 1.0
	}
}

// queueRank orders admission: higher values are served first.
func (p Priority) queueRank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}
