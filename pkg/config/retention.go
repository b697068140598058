package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// PlanRetentionDays is how many days to keep terminal-status plans
	// before soft-deleting them (setting deleted_at).
	PlanRetentionDays int `yaml:"plan_retention_days"`

	// EventTTL is the maximum age of events table rows (the NOTIFY catchup
	// log) before deletion. A safety net; the catchup window only needs to
	// cover a brief client reconnect gap.
	EventTTL time.Duration `yaml:"event_ttl"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		PlanRetentionDays: 365,
		EventTTL:          1 * time.Hour,
		CleanupInterval:   12 * time.Hour,
	}
}
