package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/jonwraymond/backstop/calibrate"
	"github.com/jonwraymond/backstop/circuit"
	"github.com/jonwraymond/backstop/resilience"
)

func testTelemetry(t *testing.T, buf *bytes.Buffer) (*Telemetry, *sdkmetric.ManualReader) {
	t.Helper()
	m, reader := testMeter(t)
	tel := &Telemetry{
		logger:  NewLoggerWithWriter("debug", buf),
		metrics: m,
	}
	return tel, reader
}

func TestTelemetry_OnTimeout(t *testing.T) {
	var buf bytes.Buffer
	tel, reader := testTelemetry(t, &buf)

	tel.OnTimeout(resilience.TimeoutEvent{
		OperationID:   "op-1",
		Component:     "primary-llm",
		OperationType: "chat.completion",
		Elapsed:       31 * time.Second,
		Limit:         30 * time.Second,
	})

	if !strings.Contains(buf.String(), "attempt timed out") {
		t.Error("expected timeout log line")
	}
	if !strings.Contains(buf.String(), "primary-llm") {
		t.Error("expected component in log line")
	}

	rm := collect(t, reader)
	if got := sumValue(t, rm, "backend.call.timeouts"); got != 1 {
		t.Errorf("backend.call.timeouts = %d, want 1", got)
	}
}

func TestTelemetry_OnRetry(t *testing.T) {
	var buf bytes.Buffer
	tel, reader := testTelemetry(t, &buf)

	tel.OnRetry(resilience.RetryEvent{
		OperationID: "op-1",
		Component:   "primary-llm",
		Attempt:     1,
		Delay:       2 * time.Second,
		Err:         errors.New("connection reset"),
	})

	if !strings.Contains(buf.String(), "retry scheduled") {
		t.Error("expected retry log line")
	}
	if !strings.Contains(buf.String(), "connection reset") {
		t.Error("expected error in log line")
	}

	rm := collect(t, reader)
	if got := sumValue(t, rm, "backend.call.retries"); got != 1 {
		t.Errorf("backend.call.retries = %d, want 1", got)
	}
}

func TestTelemetry_OnCircuitChange(t *testing.T) {
	var buf bytes.Buffer
	tel, reader := testTelemetry(t, &buf)

	tel.OnCircuitChange(resilience.CircuitEvent{
		Component: "flaky-llm",
		From:      circuit.StateClosed,
		To:        circuit.StateOpen,
	})

	out := buf.String()
	if !strings.Contains(out, "circuit state changed") {
		t.Error("expected circuit log line")
	}
	if !strings.Contains(out, "open") {
		t.Error("expected target state in log line")
	}

	rm := collect(t, reader)
	if got := sumValue(t, rm, "backend.circuit.transitions"); got != 1 {
		t.Errorf("backend.circuit.transitions = %d, want 1", got)
	}
}

func TestTelemetry_OnCalibrationUpdate(t *testing.T) {
	var buf bytes.Buffer
	tel, reader := testTelemetry(t, &buf)

	tel.OnCalibrationUpdate(resilience.CalibrationEvent{
		Component:  "primary-llm",
		Timeout:    12 * time.Second,
		Tier:       calibrate.TierExcellent,
		Trend:      calibrate.TrendStable,
		Confidence: 0.97,
	})

	if !strings.Contains(buf.String(), "timeout recalibrated") {
		t.Error("expected calibration log line")
	}

	rm := collect(t, reader)
	found := findMetric(rm, "backend.timeout.calibrated_ms")
	if found == nil {
		t.Fatal("backend.timeout.calibrated_ms metric not found")
	}
}

func TestTelemetry_OnTimeoutWarning(t *testing.T) {
	var buf bytes.Buffer
	tel, _ := testTelemetry(t, &buf)

	tel.OnTimeoutWarning(resilience.TimeoutWarningEvent{
		OperationID:   "op-1",
		Component:     "primary-llm",
		OperationType: "chat.completion",
		Elapsed:       24 * time.Second,
		Remaining:     6 * time.Second,
	})

	if !strings.Contains(buf.String(), "approaching timeout") {
		t.Error("expected warning log line")
	}
}

func TestNewTelemetry_NilObserver(t *testing.T) {
	if _, err := NewTelemetry(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("NewTelemetry(nil) = %v, want %v", err, ErrNilObserver)
	}
}

// TestTelemetry_EndToEnd wires the listener into a manager and checks
// events flow through the dispatcher.
func TestTelemetry_EndToEnd(t *testing.T) {
	var buf bytes.Buffer
	tel, reader := testTelemetry(t, &buf)

	m := resilience.NewManager(resilience.ManagerConfig{
		Defaults:  resilience.Backend{FailureThreshold: 1},
		Listeners: []resilience.Listener{tel},
	})

	_ = m.Execute(context.Background(), resilience.Call{
		OperationType: "chat.completion",
		Component:     "flaky-llm",
	}, func(ctx context.Context) error {
		return errors.New("503 service unavailable")
	})

	m.Close()

	rm := collect(t, reader)
	if got := sumValue(t, rm, "backend.circuit.transitions"); got != 1 {
		t.Errorf("backend.circuit.transitions = %d, want 1", got)
	}
	if !strings.Contains(buf.String(), "circuit state changed") {
		t.Error("expected circuit log line after manager close")
	}
}
