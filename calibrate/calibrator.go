package calibrate

import (
	"sort"
	"sync"
	"time"
)

// Tier is a coarse reliability classification for one backend.
type Tier int

const (
	// TierUnknown means the backend has not been calibrated yet.
	TierUnknown Tier = iota
	// TierExcellent means the backend is fast and near-perfectly reliable.
	TierExcellent
	// TierGood means the backend is reliable with minor noise.
	TierGood
	// TierFair means the backend is usable but shaky.
	TierFair
	// TierPoor means the backend fails or times out often.
	TierPoor
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	case TierFair:
		return "fair"
	case TierPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// modifier returns the timeout multiplier for the tier. Reliable
// backends get tighter timeouts so they fail fast; unreliable ones get
// slack to avoid false timeouts.
func (t Tier) modifier() float64 {
	switch t {
	case TierExcellent:
		return 0.8
	case TierGood:
		return 0.9
	case TierPoor:
		return 1.3
	default:
		return 1.0
	}
}

// Trend describes the direction a backend's behavior is moving in.
type Trend int

const (
	// TrendStable means recent behavior matches the preceding window.
	TrendStable Trend = iota
	// TrendImproving means latency and success rate are both getting better.
	TrendImproving
	// TrendDegrading means latency and success rate are both getting worse.
	TrendDegrading
)

// String returns the string representation of the trend.
func (t Trend) String() string {
	switch t {
	case TrendImproving:
		return "improving"
	case TrendDegrading:
		return "degrading"
	default:
		return "stable"
	}
}

func (t Trend) modifier() float64 {
	switch t {
	case TrendImproving:
		return 0.9
	case TrendDegrading:
		return 1.1
	default:
		return 1.0
	}
}

// Sample is one completed attempt against a backend.
type Sample struct {
	// Timestamp is when the attempt completed.
	Timestamp time.Time

	// Latency is how long the attempt took.
	Latency time.Duration

	// Success reports whether the attempt succeeded.
	Success bool

	// TimedOut reports whether the attempt failed by exceeding its
	// time budget.
	TimedOut bool

	// RequestBytes is the approximate request size, if known.
	RequestBytes int
}

// Curve is the derived adaptive timeout for one backend.
type Curve struct {
	// Timeout is the recommended per-attempt budget.
	Timeout time.Duration

	// Tier is the quality classification the timeout was derived from.
	Tier Tier

	// Confidence is how much the calibrator trusts the window (0-1).
	Confidence float64

	// Trend is the direction the backend is moving in.
	Trend Trend

	// CalibratedAt is when the curve was last recomputed.
	CalibratedAt time.Time

	// Samples is the number of samples the curve was computed over.
	Samples int
}

// Config configures a Calibrator.
type Config struct {
	// Window is the number of most recent samples used per
	// recalibration.
	// Default: 20
	Window int

	// MinSamples is the number of samples required before the first
	// calibration.
	// Default: 5
	MinSamples int

	// MinTimeout is the lower clamp on derived timeouts.
	// Default: 5 seconds
	MinTimeout time.Duration

	// MaxTimeout is the upper clamp on derived timeouts.
	// Default: 55 seconds
	MaxTimeout time.Duration

	// MaxHistory bounds the retained sample window.
	// Default: 2 x Window
	MaxHistory int

	// OnUpdate is called after each recalibration with the new curve.
	// It must not block; the calibrator invokes it synchronously.
	OnUpdate func(component string, c Curve)
}

// Calibrator tracks outcome samples per backend and derives adaptive
// timeouts. All methods are safe for concurrent use; state for
// different backends is guarded independently so unrelated backends
// never serialize on each other.
type Calibrator struct {
	cfg Config

	mu       sync.RWMutex
	trackers map[string]*tracker
}

type tracker struct {
	mu         sync.Mutex
	family     Family
	samples    []Sample
	curve      Curve
	calibrated bool
}

// New creates a new Calibrator.
func New(cfg Config) *Calibrator {
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 5
	}
	if cfg.MinTimeout <= 0 {
		cfg.MinTimeout = 5 * time.Second
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = 55 * time.Second
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 2 * cfg.Window
	}

	return &Calibrator{
		cfg:      cfg,
		trackers: make(map[string]*tracker),
	}
}

// SetFamily declares the provider family for a backend. The family
// only affects the cold-start timeout; calibration data wins once it
// exists.
func (c *Calibrator) SetFamily(component string, f Family) {
	t := c.tracker(component)
	t.mu.Lock()
	t.family = f
	t.mu.Unlock()
}

// Record appends an outcome sample for a backend and recalibrates if
// the window holds enough samples.
func (c *Calibrator) Record(component string, s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	t := c.tracker(component)

	t.mu.Lock()
	t.samples = append(t.samples, s)
	if len(t.samples) > c.cfg.MaxHistory {
		t.samples = t.samples[len(t.samples)-c.cfg.MaxHistory:]
	}

	var updated bool
	var curve Curve
	if len(t.samples) >= c.cfg.MinSamples {
		curve = c.recalibrate(t.samples)
		t.curve = curve
		t.calibrated = true
		updated = true
	}
	t.mu.Unlock()

	if updated && c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(component, curve)
	}
}

// Timeout returns the current recommended timeout for a backend. A
// backend without calibration data gets its family default.
func (c *Calibrator) Timeout(component string) time.Duration {
	c.mu.RLock()
	t, ok := c.trackers[component]
	c.mu.RUnlock()
	if !ok {
		return FamilyGeneric.DefaultTimeout()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.calibrated {
		return t.curve.Timeout
	}
	return t.family.DefaultTimeout()
}

// Status returns the current calibration curve for a backend. The
// second return value is false when the backend has never calibrated.
func (c *Calibrator) Status(component string) (Curve, bool) {
	c.mu.RLock()
	t, ok := c.trackers[component]
	c.mu.RUnlock()
	if !ok {
		return Curve{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.curve, t.calibrated
}

// LastSample returns the most recent outcome sample retained for a
// backend. The second return value is false when none has been
// recorded.
func (c *Calibrator) LastSample(component string) (Sample, bool) {
	c.mu.RLock()
	t, ok := c.trackers[component]
	c.mu.RUnlock()
	if !ok {
		return Sample{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return Sample{}, false
	}
	return t.samples[len(t.samples)-1], true
}

// Reset discards all samples and calibration state for a backend. The
// family declaration survives.
func (c *Calibrator) Reset(component string) {
	c.mu.RLock()
	t, ok := c.trackers[component]
	c.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	t.samples = nil
	t.curve = Curve{}
	t.calibrated = false
	t.mu.Unlock()
}

func (c *Calibrator) tracker(component string) *tracker {
	c.mu.RLock()
	t, ok := c.trackers[component]
	c.mu.RUnlock()
	if ok {
		return t
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok = c.trackers[component]; ok {
		return t
	}
	t = &tracker{}
	c.trackers[component] = t
	return t
}

// recalibrate derives a new curve from the most recent window of
// samples. Called with the tracker lock held.
func (c *Calibrator) recalibrate(samples []Sample) Curve {
	window := samples
	if len(window) > c.cfg.Window {
		window = window[len(window)-c.cfg.Window:]
	}

	n := len(window)
	latencies := make([]float64, n)
	var successes, timeouts int
	var sum float64
	for i, s := range window {
		ms := float64(s.Latency) / float64(time.Millisecond)
		latencies[i] = ms
		sum += ms
		if s.Success {
			successes++
		}
		if s.TimedOut {
			timeouts++
		}
	}

	avg := sum / float64(n)
	p95 := percentile(latencies, 0.95)
	max := maxOf(latencies)
	variance := varianceOf(latencies, avg)
	successRate := float64(successes) / float64(n)
	timeoutRate := float64(timeouts) / float64(n)

	// Prefer P95 with a 50% buffer, but never exceed 120% of the
	// observed maximum and never fall under double the average. The
	// triple bound absorbs both a single outlier and a noisy-but-fast
	// backend.
	base := p95 * 1.5
	capped := max * 1.2
	floor := avg * 2.0
	if capped > floor {
		capped = floor
	}
	if capped > base {
		base = capped
	}

	consistency := 1.0
	if avg > 0 {
		consistency = 1.0 / (1.0 + variance/avg)
	}
	confidence := float64(n) / float64(c.cfg.Window)
	if confidence > 1 {
		confidence = 1
	}
	confidence *= consistency

	score := successRate * (1 - timeoutRate) * confidence
	tier := tierFor(score)
	trend := trendFor(window)

	timeoutMs := base * tier.modifier() * trend.modifier()
	timeout := time.Duration(timeoutMs * float64(time.Millisecond))
	if timeout < c.cfg.MinTimeout {
		timeout = c.cfg.MinTimeout
	}
	if timeout > c.cfg.MaxTimeout {
		timeout = c.cfg.MaxTimeout
	}

	return Curve{
		Timeout:      timeout,
		Tier:         tier,
		Confidence:   confidence,
		Trend:        trend,
		CalibratedAt: time.Now(),
		Samples:      n,
	}
}

func tierFor(score float64) Tier {
	switch {
	case score >= 0.95:
		return TierExcellent
	case score >= 0.85:
		return TierGood
	case score >= 0.70:
		return TierFair
	default:
		return TierPoor
	}
}

// trendFor compares the latest 5 samples against the preceding 5. A
// >=10% latency improvement together with a >=5% success-rate
// improvement counts as improving; the inverse counts as degrading.
func trendFor(window []Sample) Trend {
	const span = 5
	if len(window) < 2*span {
		return TrendStable
	}

	recent := window[len(window)-span:]
	previous := window[len(window)-2*span : len(window)-span]

	recentLat, recentOK := segmentStats(recent)
	prevLat, prevOK := segmentStats(previous)
	if prevLat <= 0 {
		return TrendStable
	}

	latencyDelta := (prevLat - recentLat) / prevLat
	successDelta := recentOK - prevOK

	switch {
	case latencyDelta >= 0.10 && successDelta >= 0.05:
		return TrendImproving
	case latencyDelta <= -0.10 && successDelta <= -0.05:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func segmentStats(samples []Sample) (avgLatencyMs, successRate float64) {
	var sum float64
	var ok int
	for _, s := range samples {
		sum += float64(s.Latency) / float64(time.Millisecond)
		if s.Success {
			ok++
		}
	}
	return sum / float64(len(samples)), float64(ok) / float64(len(samples))
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted))*p+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func maxOf(values []float64) float64 {
	var m float64
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func varianceOf(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
