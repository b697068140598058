package config

import (
	"fmt"
	"sync"
	"time"
)

// PollerConfig holds C4 periodic-poller-framework cadence settings for one
// handler kind (git, jira, confluence, mail).
type PollerConfig struct {
	// PollingInterval is the minimum gap between polls of the same account.
	PollingInterval time.Duration `yaml:"polling_interval"`

	// InitialDelay is the grace period before the first cycle.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// CycleDelay is the gap between sweeps over all accounts.
	CycleDelay time.Duration `yaml:"cycle_delay"`
}

// DefaultPollerConfig returns the built-in poller cadence defaults.
func DefaultPollerConfig() *PollerConfig {
	return &PollerConfig{
		PollingInterval: 5 * time.Minute,
		InitialDelay:    10 * time.Second,
		CycleDelay:      1 * time.Second,
	}
}

// PollerRegistry stores per-handler-kind poller configurations.
type PollerRegistry struct {
	pollers map[string]*PollerConfig
	mu      sync.RWMutex
}

// NewPollerRegistry creates a new poller registry, falling back to
// DefaultPollerConfig for any handler kind not present in pollers.
func NewPollerRegistry(pollers map[string]*PollerConfig) *PollerRegistry {
	copied := make(map[string]*PollerConfig, len(pollers))
	for k, v := range pollers {
		copied[k] = v
	}
	return &PollerRegistry{pollers: copied}
}

// Get retrieves the poller configuration for a handler kind (thread-safe).
// Returns the built-in default if the kind has no explicit configuration.
func (r *PollerRegistry) Get(kind string) *PollerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.pollers[kind]; ok {
		return cfg
	}
	return DefaultPollerConfig()
}

// Has reports whether a handler kind has an explicit configuration entry.
func (r *PollerRegistry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pollers[kind]
	return ok
}

// ErrHandlerNotConfigured indicates a poller handler kind is unknown.
var ErrHandlerNotConfigured = fmt.Errorf("%w: handler kind not configured", ErrInvalidReference)
