package policy

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BackoffStrategy defines how retry delays grow between attempts.
type BackoffStrategy int

const (
	// BackoffExponential doubles the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases the delay linearly with the attempt number.
	BackoffLinear
	// BackoffAdaptive grows the delay by 1.8x per attempt up to a cap.
	BackoffAdaptive
)

// String returns the string representation of the strategy.
func (s BackoffStrategy) String() string {
	switch s {
	case BackoffExponential:
		return "exponential"
	case BackoffLinear:
		return "linear"
	case BackoffAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseBackoffStrategy parses a strategy name. Unknown names fall back
// to exponential.
func ParseBackoffStrategy(s string) BackoffStrategy {
	switch strings.ToLower(s) {
	case "linear":
		return BackoffLinear
	case "adaptive":
		return BackoffAdaptive
	default:
		return BackoffExponential
	}
}

// TimeoutPolicy is the static rule for one operation type.
type TimeoutPolicy struct {
	// Duration is the base time budget for one attempt.
	Duration time.Duration

	// RetryEnabled controls whether failed attempts are retried at all.
	RetryEnabled bool

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Backoff is the delay growth strategy between retries.
	Backoff BackoffStrategy

	// BaseDelay is the starting delay for backoff computation.
	BaseDelay time.Duration

	// WarningThreshold is the fraction of Duration (0-1) after which a
	// timeout warning is emitted for a still-running attempt.
	WarningThreshold float64

	// Pinned reports that Duration came from an environment override
	// and should win over any calibrated value.
	Pinned bool
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Default is the policy returned for unregistered operation types.
	Default TimeoutPolicy

	// Ceiling is the hard upper bound applied to every resolved
	// duration, including environment overrides.
	// Default: 2 minutes
	Ceiling time.Duration

	// EnvPrefix is the prefix for environment overrides. An override
	// for operation type "chat_completion" is read from
	// <EnvPrefix>_TIMEOUT_CHAT_COMPLETION.
	// Default: "BACKSTOP"
	EnvPrefix string
}

// Registry resolves operation types to timeout policies.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]TimeoutPolicy
	def      TimeoutPolicy
	ceiling  time.Duration
	prefix   string
}

// DefaultPolicy is the policy used when nothing else is configured.
func DefaultPolicy() TimeoutPolicy {
	return TimeoutPolicy{
		Duration:         30 * time.Second,
		RetryEnabled:     true,
		MaxRetries:       2,
		Backoff:          BackoffExponential,
		BaseDelay:        2 * time.Second,
		WarningThreshold: 0.8,
	}
}

// NewRegistry creates a new policy registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.Default == (TimeoutPolicy{}) {
		config.Default = DefaultPolicy()
	}
	if config.Ceiling <= 0 {
		config.Ceiling = 2 * time.Minute
	}
	if config.EnvPrefix == "" {
		config.EnvPrefix = "BACKSTOP"
	}

	return &Registry{
		policies: make(map[string]TimeoutPolicy),
		def:      config.Default,
		ceiling:  config.Ceiling,
		prefix:   config.EnvPrefix,
	}
}

// Register sets the policy for an operation type, replacing any
// previous registration.
func (r *Registry) Register(operationType string, p TimeoutPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[operationType] = p
}

// Resolve returns the effective policy for an operation type. Unknown
// types resolve to the default policy; this is intentional and never
// an error. Environment overrides are applied last and clamped to the
// ceiling.
func (r *Registry) Resolve(operationType string) TimeoutPolicy {
	r.mu.RLock()
	p, ok := r.policies[operationType]
	if !ok {
		p = r.def
	}
	ceiling := r.ceiling
	prefix := r.prefix
	r.mu.RUnlock()

	if d, ok := envDuration(prefix, operationType); ok {
		p.Duration = d
		p.Pinned = true
	}
	if p.Duration > ceiling {
		p.Duration = ceiling
	}
	return p
}

// Override applies a partial policy on top of the current registration
// (or the default, for unregistered types) and stores the result.
func (r *Registry) Override(operationType string, partial Partial) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.policies[operationType]
	if !ok {
		p = r.def
	}
	partial.apply(&p)
	r.policies[operationType] = p
}

// Partial holds optional policy fields for Override. Nil fields leave
// the existing value untouched.
type Partial struct {
	Duration         *time.Duration
	RetryEnabled     *bool
	MaxRetries       *int
	Backoff          *BackoffStrategy
	BaseDelay        *time.Duration
	WarningThreshold *float64
}

func (p Partial) apply(dst *TimeoutPolicy) {
	if p.Duration != nil {
		dst.Duration = *p.Duration
	}
	if p.RetryEnabled != nil {
		dst.RetryEnabled = *p.RetryEnabled
	}
	if p.MaxRetries != nil {
		dst.MaxRetries = *p.MaxRetries
	}
	if p.Backoff != nil {
		dst.Backoff = *p.Backoff
	}
	if p.BaseDelay != nil {
		dst.BaseDelay = *p.BaseDelay
	}
	if p.WarningThreshold != nil {
		dst.WarningThreshold = *p.WarningThreshold
	}
}

// OperationTypes returns the registered operation types.
func (r *Registry) OperationTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.policies))
	for t := range r.policies {
		types = append(types, t)
	}
	return types
}

// EnvKey returns the environment variable consulted for an operation
// type, e.g. BACKSTOP_TIMEOUT_CHAT_COMPLETION.
func (r *Registry) EnvKey(operationType string) string {
	r.mu.RLock()
	prefix := r.prefix
	r.mu.RUnlock()
	return envKey(prefix, operationType)
}

func envKey(prefix, operationType string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("_TIMEOUT_")
	for _, c := range strings.ToUpper(operationType) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// envDuration reads a millisecond override from the environment.
// Values that are missing, unparseable, or not strictly positive are
// ignored.
func envDuration(prefix, operationType string) (time.Duration, bool) {
	raw := os.Getenv(envKey(prefix, operationType))
	if raw == "" {
		return 0, false
	}
	ms, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
