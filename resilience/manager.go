package resilience

import (
	"sync"
	"time"

	"github.com/jonwraymond/backstop/calibrate"
	"github.com/jonwraymond/backstop/circuit"
	"github.com/jonwraymond/backstop/policy"
	"github.com/jonwraymond/backstop/pool"
)

// Backend is the registration-time capability descriptor for one
// remote backend. It replaces name-matching heuristics: callers
// declare what kind of backend they are registering.
type Backend struct {
	// Name identifies the backend in every call, event, and snapshot.
	Name string

	// Family picks the cold-start timeout before calibration data
	// exists.
	// Default: FamilyGeneric
	Family calibrate.Family

	// MaxConcurrent bounds attempts running against this backend.
	// Default: 10
	MaxConcurrent int

	// MaxWait bounds how long a call may wait for an admission slot.
	// Default: 30 seconds
	MaxWait time.Duration

	// FailureThreshold is consecutive failures before the circuit opens.
	// Default: 3
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before
	// allowing trial calls.
	// Default: 30 seconds
	RecoveryTimeout time.Duration

	// HalfOpenBudget is the number of concurrent trial calls while
	// half-open.
	// Default: 1
	HalfOpenBudget int
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Policies resolves operation types to timeout policies.
	// Default: a registry with DefaultPolicy and the BACKSTOP env prefix.
	Policies *policy.Registry

	// Calibration configures the adaptive timeout calibrator.
	Calibration calibrate.Config

	// Defaults is applied to backends that were never registered
	// explicitly and fills zero fields of registered backends.
	Defaults Backend

	// Backoff configures retry delay computation.
	Backoff BackoffConfig

	// Classifier decides which errors are retryable.
	// Default: DefaultClassifier
	Classifier Classifier

	// Listeners receive lifecycle events.
	Listeners []Listener

	// EventBuffer is the size of the bounded event channel.
	// Default: 256
	EventBuffer int
}

// Manager coordinates breakers, pools, the calibrator, and the policy
// registry for a set of backends. Construct one per process and inject
// it; all methods are safe for concurrent use.
type Manager struct {
	policies   *policy.Registry
	calibrator *calibrate.Calibrator
	backoff    *Backoff
	classify   Classifier
	dispatch   *dispatcher
	defaults   Backend

	mu       sync.RWMutex
	backends map[string]*backend
}

// backend bundles the per-component gating state. Each field guards
// itself; unrelated backends never contend.
type backend struct {
	name    string
	breaker *circuit.Breaker
	pool    *pool.Pool
}

// NewManager creates a new Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Policies == nil {
		cfg.Policies = policy.NewRegistry(policy.RegistryConfig{})
	}
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier
	}
	applyBackendDefaults(&cfg.Defaults)

	m := &Manager{
		policies: cfg.Policies,
		backoff:  NewBackoff(cfg.Backoff),
		classify: cfg.Classifier,
		dispatch: newDispatcher(cfg.EventBuffer, cfg.Listeners),
		defaults: cfg.Defaults,
		backends: make(map[string]*backend),
	}

	cal := cfg.Calibration
	cal.OnUpdate = func(component string, c calibrate.Curve) {
		m.dispatch.publish(CalibrationEvent{
			Component:  component,
			Timeout:    c.Timeout,
			Tier:       c.Tier,
			Trend:      c.Trend,
			Confidence: c.Confidence,
		})
	}
	m.calibrator = calibrate.New(cal)

	return m
}

func applyBackendDefaults(b *Backend) {
	if b.MaxConcurrent <= 0 {
		b.MaxConcurrent = 10
	}
	if b.MaxWait <= 0 {
		b.MaxWait = 30 * time.Second
	}
	if b.FailureThreshold <= 0 {
		b.FailureThreshold = 3
	}
	if b.RecoveryTimeout <= 0 {
		b.RecoveryTimeout = 30 * time.Second
	}
	if b.HalfOpenBudget <= 0 {
		b.HalfOpenBudget = 1
	}
}

// Register declares a backend. Zero fields inherit the manager
// defaults. Registering an already-known name replaces its gating
// state; in-flight calls keep using the old state.
func (m *Manager) Register(b Backend) {
	if b.Name == "" {
		return
	}
	def := m.defaults
	if b.Family == calibrate.FamilyGeneric {
		b.Family = def.Family
	}
	if b.MaxConcurrent <= 0 {
		b.MaxConcurrent = def.MaxConcurrent
	}
	if b.MaxWait <= 0 {
		b.MaxWait = def.MaxWait
	}
	if b.FailureThreshold <= 0 {
		b.FailureThreshold = def.FailureThreshold
	}
	if b.RecoveryTimeout <= 0 {
		b.RecoveryTimeout = def.RecoveryTimeout
	}
	if b.HalfOpenBudget <= 0 {
		b.HalfOpenBudget = def.HalfOpenBudget
	}

	m.calibrator.SetFamily(b.Name, b.Family)

	m.mu.Lock()
	m.backends[b.Name] = m.newBackend(b)
	m.mu.Unlock()
}

func (m *Manager) newBackend(b Backend) *backend {
	name := b.Name
	return &backend{
		name: name,
		breaker: circuit.NewBreaker(circuit.Config{
			FailureThreshold: b.FailureThreshold,
			RecoveryTimeout:  b.RecoveryTimeout,
			HalfOpenBudget:   b.HalfOpenBudget,
			OnChange: func(from, to circuit.State) {
				m.dispatch.publish(CircuitEvent{Component: name, From: from, To: to})
			},
		}),
		pool: pool.New(pool.Config{
			MaxConcurrent: b.MaxConcurrent,
			MaxWait:       b.MaxWait,
		}),
	}
}

// backend returns the gating state for a component, creating it with
// manager defaults on first use.
func (m *Manager) backend(component string) *backend {
	m.mu.RLock()
	b, ok := m.backends[component]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.backends[component]; ok {
		return b
	}
	def := m.defaults
	def.Name = component
	b = m.newBackend(def)
	m.backends[component] = b
	return b
}

// BackendStatus is a read-only snapshot of one backend for dashboards
// and health checks.
type BackendStatus struct {
	Component   string
	Circuit     circuit.Snapshot
	Pool        pool.Snapshot
	Calibration calibrate.Curve
	Calibrated  bool
}

// Status returns the snapshot for one backend. The second return value
// is false for backends the manager has never seen.
func (m *Manager) Status(component string) (BackendStatus, bool) {
	m.mu.RLock()
	b, ok := m.backends[component]
	m.mu.RUnlock()
	if !ok {
		return BackendStatus{}, false
	}

	curve, calibrated := m.calibrator.Status(component)
	return BackendStatus{
		Component:   component,
		Circuit:     b.breaker.Snapshot(),
		Pool:        b.pool.Snapshot(),
		Calibration: curve,
		Calibrated:  calibrated,
	}, true
}

// StatusAll returns snapshots for every known backend.
func (m *Manager) StatusAll() map[string]BackendStatus {
	m.mu.RLock()
	names := make([]string, 0, len(m.backends))
	for name := range m.backends {
		names = append(names, name)
	}
	m.mu.RUnlock()

	out := make(map[string]BackendStatus, len(names))
	for _, name := range names {
		if st, ok := m.Status(name); ok {
			out[name] = st
		}
	}
	return out
}

// Components returns the names of every known backend.
func (m *Manager) Components() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.backends))
	for name := range m.backends {
		names = append(names, name)
	}
	return names
}

// Policies exposes the manager's policy registry for runtime tuning.
func (m *Manager) Policies() *policy.Registry {
	return m.policies
}

// ResetBreaker forces a backend's circuit back to closed. Operator
// action; no effect on unknown backends.
func (m *Manager) ResetBreaker(component string) {
	m.mu.RLock()
	b, ok := m.backends[component]
	m.mu.RUnlock()
	if ok {
		b.breaker.Reset()
	}
}

// ResetCalibration discards a backend's calibration state so it
// rebuilds from fresh samples.
func (m *Manager) ResetCalibration(component string) {
	m.calibrator.Reset(component)
}

// Close stops event dispatch after draining buffered events. Events
// published by calls still in flight after Close are dropped.
func (m *Manager) Close() {
	m.dispatch.close()
}
