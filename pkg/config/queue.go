package config

import "time"

// QueueConfig contains C3 work queue and worker pool configuration.
// These values control how WorkItems are leased, claimed, and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently leases and processes work items.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentItems is the global limit of concurrent work items being
	// processed across ALL replicas/pods. Enforced by database COUNT(*) check.
	MaxConcurrentItems int `yaml:"max_concurrent_items"`

	// PollInterval is the base interval for checking for new work items.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// LeaseTimeout is the maximum time a worker may hold an IN_PROGRESS
	// item before it becomes eligible for re-lease by another worker.
	LeaseTimeout time.Duration `yaml:"lease_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active leases
	// to complete during shutdown. Should match LeaseTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for stale IN_PROGRESS items.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// MaxAttempts bounds how many times a WorkItem may be retried before it
	// becomes terminally FAILED.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentItems:      5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		LeaseTimeout:            15 * time.Minute,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		MaxAttempts:             5,
	}
}
