package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/backstop/calibrate"
	"github.com/jonwraymond/backstop/circuit"
)

// TimeoutEvent reports an attempt that exceeded its budget.
type TimeoutEvent struct {
	OperationID   string
	Component     string
	OperationType string
	Elapsed       time.Duration
	Limit         time.Duration
}

// TimeoutWarningEvent reports an attempt that crossed its warning
// threshold while still running.
type TimeoutWarningEvent struct {
	OperationID   string
	Component     string
	OperationType string
	Elapsed       time.Duration
	Remaining     time.Duration
}

// RetryEvent reports a scheduled retry.
type RetryEvent struct {
	OperationID string
	Component   string
	Attempt     int
	Delay       time.Duration
	Err         error
}

// CircuitEvent reports a circuit breaker state transition.
type CircuitEvent struct {
	Component string
	From      circuit.State
	To        circuit.State
}

// CalibrationEvent reports a recomputed calibration curve.
type CalibrationEvent struct {
	Component  string
	Timeout    time.Duration
	Tier       calibrate.Tier
	Trend      calibrate.Trend
	Confidence float64
}

// Listener receives lifecycle events. Methods are invoked from a
// single dispatch goroutine, never from the execution path, so a slow
// listener delays other listeners but never the core. Embed
// NopListener to implement only the methods of interest.
type Listener interface {
	OnTimeout(TimeoutEvent)
	OnTimeoutWarning(TimeoutWarningEvent)
	OnRetry(RetryEvent)
	OnCircuitChange(CircuitEvent)
	OnCalibrationUpdate(CalibrationEvent)
}

// NopListener implements Listener with no-ops.
type NopListener struct{}

func (NopListener) OnTimeout(TimeoutEvent)               {}
func (NopListener) OnTimeoutWarning(TimeoutWarningEvent) {}
func (NopListener) OnRetry(RetryEvent)                   {}
func (NopListener) OnCircuitChange(CircuitEvent)         {}
func (NopListener) OnCalibrationUpdate(CalibrationEvent) {}

// dispatcher fans events out to listeners through a bounded channel.
// Publishing never blocks: when the buffer is full the event is
// dropped and counted. The channel is guarded by mu so a publish
// racing a close can never send on a closed channel; publishers after
// close are silent no-ops.
type dispatcher struct {
	listeners []Listener
	dropped   atomic.Int64

	mu     sync.RWMutex
	ch     chan any
	closed bool
	done   chan struct{}
}

func newDispatcher(buffer int, listeners []Listener) *dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &dispatcher{
		ch:        make(chan any, buffer),
		listeners: listeners,
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) publish(e any) {
	if len(d.listeners) == 0 {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- e:
	default:
		d.dropped.Add(1)
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for e := range d.ch {
		for _, l := range d.listeners {
			switch ev := e.(type) {
			case TimeoutEvent:
				l.OnTimeout(ev)
			case TimeoutWarningEvent:
				l.OnTimeoutWarning(ev)
			case RetryEvent:
				l.OnRetry(ev)
			case CircuitEvent:
				l.OnCircuitChange(ev)
			case CalibrationEvent:
				l.OnCalibrationUpdate(ev)
			}
		}
	}
}

// close stops the dispatch goroutine after draining buffered events.
func (d *dispatcher) close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	<-d.done
}
