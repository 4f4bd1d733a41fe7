// Package calibrate derives adaptive per-backend timeouts from
// observed call outcomes.
//
// A Calibrator keeps a bounded rolling window of outcome samples per
// backend. Once a backend has enough samples, every new outcome
// triggers a synchronous recalibration that computes percentile
// latency, success rate, a coarse quality tier, and a trend, and
// derives a recommended timeout from them:
//
//   - base timeout = max(P95 x 1.5, min(max x 1.2, avg x 2.0))
//   - reliable backends (high tier) get a tighter timeout, unreliable
//     ones get slack to avoid false timeouts
//   - an improving or degrading trend nudges the result further
//   - the result is clamped to [MinTimeout, MaxTimeout]
//
// Backends without calibration data fall back to a default for their
// declared Family, so new backends still start with a sane budget.
package calibrate
