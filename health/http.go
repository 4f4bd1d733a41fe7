package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler answers liveness probes. It only proves the process
// is serving requests; backend condition is the readiness probe's job.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// Readiness answers readiness probes with the folded backend status as
// plain text. Degraded backends still count as ready: calls flow, just
// with reduced quality.
func (mo *Monitor) Readiness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		switch Overall(mo.CheckAll()) {
		case StatusHealthy:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// BackendReport is the JSON shape of one backend's verdict.
type BackendReport struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Detail  Detail `json:"detail"`
	Checked string `json:"checked"`
}

// HealthReport is the JSON shape of the full health endpoint.
type HealthReport struct {
	Status   string                   `json:"status"`
	Backends map[string]BackendReport `json:"backends,omitempty"`
}

// Report serves the JSON view of every backend. A backend query
// parameter narrows it to one backend; unknown names get 404. The
// status code is 503 only when the reported scope is unhealthy.
func (mo *Monitor) Report() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("backend"); name != "" {
			result, err := mo.Check(name)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, statusCode(result.Status), toReport(result))
			return
		}

		results := mo.CheckAll()
		overall := Overall(results)
		report := HealthReport{
			Status:   overall.String(),
			Backends: make(map[string]BackendReport, len(results)),
		}
		for _, result := range results {
			report.Backends[result.Component] = toReport(result)
		}
		writeJSON(w, statusCode(overall), report)
	}
}

// Routes registers the probe endpoints on mux: /healthz for liveness,
// /readyz for readiness, /health for the JSON report.
func (mo *Monitor) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", mo.Readiness())
	mux.HandleFunc("/health", mo.Report())
}

func toReport(result Result) BackendReport {
	return BackendReport{
		Status:  result.Status.String(),
		Message: result.Message,
		Detail:  result.Detail,
		Checked: result.Checked.UTC().Format(time.RFC3339),
	}
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
