// Package health grades protected backends from their resilience
// snapshots.
//
// A Monitor reads each backend's circuit breaker state, connection
// pool pressure, and calibration tier through the resilience manager
// and folds them into a Status of healthy, degraded, or unhealthy.
// Checks never call the backend itself.
//
// # Basic Usage
//
//	mon := health.NewMonitor(manager)
//	result, err := mon.Check("primary-llm")
//	if err == nil && result.Status == health.StatusUnhealthy {
//	    log.Printf("backend down: %s", result.Message)
//	}
//
// # Grading Every Backend
//
//	results := mon.CheckAll()
//	overall := health.Overall(results)
//
// # HTTP Endpoints
//
// Routes registers the common probe endpoints:
//
//	mux := http.NewServeMux()
//	mon.Routes(mux)
//	// /healthz  liveness probe
//	// /readyz   readiness probe from the folded backend status
//	// /health   JSON report, ?backend=name for one backend
package health
