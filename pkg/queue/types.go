// Package queue provides durable work-item queue and worker-pool infrastructure (C3).
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/jandamek/jervis/ent"
)

// Sentinel errors for queue operations.
var (
	// ErrNoItemsAvailable indicates no NEW work items are in the queue.
	ErrNoItemsAvailable = errors.New("no work items available")

	// ErrAtCapacity indicates the global concurrent-item limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// ItemExecutor is the interface for work-item processing.
//
// The executor owns the entire per-item pipeline (C6's fetch/chunk/embed/
// upsert/ledger-update sequence, or a cross-indexer link resolution for
// items sourced from C11). The worker only handles: claiming, lease
// tracking, and terminal state transition.
type ItemExecutor interface {
	Execute(ctx context.Context, item *ent.WorkItem) *ExecutionResult
}

// ExecutionResult is the terminal outcome of processing one work item.
// A nil Error with Indexed=true marks the item INDEXED; a non-nil Error
// marks it for retry (back to NEW, attempts permitting) or permanent FAILED.
type ExecutionResult struct {
	Indexed bool
	Error   error
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveItems      int            `json:"active_items"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"` // "idle" or "working"
	CurrentItemID  string    `json:"current_item_id,omitempty"`
	ItemsProcessed int       `json:"items_processed"`
	LastActivity   time.Time `json:"last_activity"`
}
