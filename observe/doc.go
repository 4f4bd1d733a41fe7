// Package observe provides telemetry for backend calls: OpenTelemetry
// tracing and metrics, structured JSON logging, and a resilience event
// listener that bridges timeouts, retries, circuit transitions, and
// calibration updates into logs and metrics.
package observe
