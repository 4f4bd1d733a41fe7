package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/backstop/resilience"
)

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	LivenessHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "OK" {
		t.Errorf("body = %q, want OK", body)
	}
}

func TestReadiness_Healthy(t *testing.T) {
	m := newTestManager(t, resilience.Backend{})
	m.Register(resilience.Backend{Name: "primary-llm"})
	mon := NewMonitor(m)

	rec := httptest.NewRecorder()
	mon.Readiness()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "OK" {
		t.Errorf("body = %q, want OK", body)
	}
}

func TestReadiness_Degraded(t *testing.T) {
	m := newTestManager(t, resilience.Backend{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	_ = m.Execute(context.Background(), resilience.Call{OperationType: "op", Component: "flaky"},
		func(ctx context.Context) error { return errors.New("503 service unavailable") })
	time.Sleep(20 * time.Millisecond)

	mon := NewMonitor(m)
	rec := httptest.NewRecorder()
	mon.Readiness()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d for degraded", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "DEGRADED" {
		t.Errorf("body = %q, want DEGRADED", body)
	}
}

func TestReadiness_Unhealthy(t *testing.T) {
	m := newTestManager(t, resilience.Backend{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	_ = m.Execute(context.Background(), resilience.Call{OperationType: "op", Component: "flaky"},
		func(ctx context.Context) error { return errors.New("503 service unavailable") })

	mon := NewMonitor(m)
	rec := httptest.NewRecorder()
	mon.Readiness()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if body := rec.Body.String(); body != "UNHEALTHY" {
		t.Errorf("body = %q, want UNHEALTHY", body)
	}
}

func TestReport(t *testing.T) {
	m := newTestManager(t, resilience.Backend{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	m.Register(resilience.Backend{Name: "primary"})

	_ = m.Execute(context.Background(), resilience.Call{OperationType: "op", Component: "flaky"},
		func(ctx context.Context) error { return errors.New("503 service unavailable") })

	mon := NewMonitor(m)
	rec := httptest.NewRecorder()
	mon.Report()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if report.Status != "unhealthy" {
		t.Errorf("overall status = %q, want unhealthy", report.Status)
	}
	if len(report.Backends) != 2 {
		t.Fatalf("backends = %d, want 2", len(report.Backends))
	}
	if report.Backends["primary"].Status != "healthy" {
		t.Errorf("primary status = %q, want healthy", report.Backends["primary"].Status)
	}
	if report.Backends["flaky"].Detail.Circuit != "open" {
		t.Errorf("flaky circuit = %q, want open", report.Backends["flaky"].Detail.Circuit)
	}
}

func TestReport_SingleBackend(t *testing.T) {
	m := newTestManager(t, resilience.Backend{})
	m.Register(resilience.Backend{Name: "primary"})

	mon := NewMonitor(m)
	rec := httptest.NewRecorder()
	mon.Report()(rec, httptest.NewRequest(http.MethodGet, "/health?backend=primary", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var report BackendReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Status != "healthy" {
		t.Errorf("status = %q, want healthy", report.Status)
	}
	if report.Detail.MaxCalls == 0 {
		t.Error("Detail.MaxCalls = 0, want pool capacity")
	}
}

func TestReport_UnknownBackend(t *testing.T) {
	m := newTestManager(t, resilience.Backend{})

	mon := NewMonitor(m)
	rec := httptest.NewRecorder()
	mon.Report()(rec, httptest.NewRequest(http.MethodGet, "/health?backend=ghost", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "unknown backend") {
		t.Errorf("body = %q, want unknown backend error", rec.Body.String())
	}
}

func TestRoutes(t *testing.T) {
	m := newTestManager(t, resilience.Backend{})
	m.Register(resilience.Backend{Name: "primary"})

	mux := http.NewServeMux()
	NewMonitor(m).Routes(mux)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
