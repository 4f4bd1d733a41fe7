package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// filePolicy is the YAML representation of one policy entry.
type filePolicy struct {
	DurationMs       int     `yaml:"duration_ms"`
	Retry            *bool   `yaml:"retry"`
	MaxRetries       *int    `yaml:"max_retries"`
	Backoff          string  `yaml:"backoff"`
	BaseDelayMs      int     `yaml:"base_delay_ms"`
	WarningThreshold float64 `yaml:"warning_threshold"`
}

// policyFile is the YAML document shape: a map of operation type to
// policy entry.
type policyFile struct {
	Policies map[string]filePolicy `yaml:"policies"`
}

// LoadFile reads a YAML policy file and registers every entry in the
// registry. Missing fields inherit from the registry default.
//
// File format:
//
//	policies:
//	  chat_completion:
//	    duration_ms: 45000
//	    max_retries: 3
//	    backoff: adaptive
//	    base_delay_ms: 3000
//	    warning_threshold: 0.75
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	return r.Load(data)
}

// Load parses YAML policy data and registers every entry.
func (r *Registry) Load(data []byte) error {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse policy file: %w", err)
	}

	r.mu.RLock()
	def := r.def
	r.mu.RUnlock()

	for opType, fp := range f.Policies {
		p := def
		if fp.DurationMs > 0 {
			p.Duration = time.Duration(fp.DurationMs) * time.Millisecond
		}
		if fp.Retry != nil {
			p.RetryEnabled = *fp.Retry
		}
		if fp.MaxRetries != nil {
			p.MaxRetries = *fp.MaxRetries
		}
		if fp.Backoff != "" {
			p.Backoff = ParseBackoffStrategy(fp.Backoff)
		}
		if fp.BaseDelayMs > 0 {
			p.BaseDelay = time.Duration(fp.BaseDelayMs) * time.Millisecond
		}
		if fp.WarningThreshold > 0 {
			p.WarningThreshold = fp.WarningThreshold
		}
		r.Register(opType, p)
	}
	return nil
}
