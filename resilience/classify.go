package resilience

import (
	"context"
	"errors"
	"strings"
)

// Classifier decides whether an error is worth retrying.
type Classifier func(err error) bool

// Markers of transient failures. Timeouts, dropped connections, and
// transport-level noise are worth retrying.
var retryableMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"broken pipe",
	"network",
	"temporarily unavailable",
	"too many requests",
	"429",
	"502",
	"503",
	"504",
}

// Markers of client-side failures. Retrying an unauthorized or
// malformed request just repeats the same rejection.
var nonRetryableMarkers = []string{
	"unauthorized",
	"forbidden",
	"bad request",
	"invalid api key",
	"not found",
	"400",
	"401",
	"403",
	"404",
	"422",
}

// DefaultClassifier classifies timeouts, connection resets, and other
// network-level failures as retryable, 4xx/auth rejections as
// non-retryable, and everything else (including generic 5xx) as
// retryable.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	for _, m := range nonRetryableMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	// Unknown failures default to retryable.
	return true
}
