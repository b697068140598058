package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/workitem"
	"github.com/jandamek/jervis/pkg/config"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes work items.
type Worker struct {
	id            string
	podID         string
	client        *ent.Client
	config        *config.QueueConfig
	itemExecutor  ItemExecutor
	pool          ItemRegistry
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	// Health tracking
	mu             sync.RWMutex
	status         WorkerStatus
	currentItemID  string
	itemsProcessed int
	lastActivity   time.Time
}

// ItemRegistry is the subset of WorkerPool used by Worker for item registration.
type ItemRegistry interface {
	RegisterItem(itemID string, cancel context.CancelFunc)
	UnregisterItem(itemID string)
}

// NewWorker creates a new queue worker.
func NewWorker(id, podID string, client *ent.Client, cfg *config.QueueConfig, executor ItemExecutor, pool ItemRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		client:       client,
		config:       cfg,
		itemExecutor: executor,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Status:         string(w.status),
		CurrentItemID:  w.currentItemID,
		ItemsProcessed: w.itemsProcessed,
		LastActivity:   w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoItemsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing work item", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims an item, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	// 1. Check global capacity (best-effort; racy with concurrent workers but
	//    bounded by WorkerCount and mitigated by poll jitter).
	activeCount, err := w.client.WorkItem.Query().
		Where(workitem.StateEQ(workitem.StateIN_PROGRESS)).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("checking active items: %w", err)
	}
	if activeCount >= w.config.MaxConcurrentItems {
		return ErrAtCapacity
	}

	// 2. Claim next item
	item, err := w.claimNextItem(ctx)
	if err != nil {
		return err
	}

	log := slog.With("item_id", item.ID, "source_urn", item.SourceUrn, "worker_id", w.id)
	log.Info("Work item claimed")

	w.setStatus(WorkerStatusWorking, item.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	// 3. Create item context bounded by the lease timeout so runaway executors
	// don't hold a claim past the point the orphan scanner would reclaim it.
	itemCtx, cancelItem := context.WithTimeout(ctx, w.config.LeaseTimeout)
	defer cancelItem()

	// 4. Register cancel function for external cancellation
	w.pool.RegisterItem(item.ID, cancelItem)
	defer w.pool.UnregisterItem(item.ID)

	// 5. Execute item
	result := w.itemExecutor.Execute(itemCtx, item)
	if result == nil {
		result = &ExecutionResult{Error: fmt.Errorf("executor returned nil result")}
	}

	// 6. Apply terminal/retry transition
	if err := w.finishItem(context.Background(), item, result); err != nil {
		log.Error("Failed to finalize work item", "error", err)
		return err
	}

	w.mu.Lock()
	w.itemsProcessed++
	w.mu.Unlock()

	log.Info("Work item processing complete", "indexed", result.Indexed)
	return nil
}

// claimNextItem atomically claims the next NEW work item using FOR UPDATE SKIP LOCKED.
// Ordered by priority (descending) then created_at (FIFO within a priority tier).
func (w *Worker) claimNextItem(ctx context.Context) (*ent.WorkItem, error) {
	tx, err := w.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := tx.WorkItem.Query().
		Where(workitem.StateEQ(workitem.StateNEW)).
		Order(ent.Desc(workitem.FieldPriority), ent.Asc(workitem.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoItemsAvailable
		}
		return nil, fmt.Errorf("failed to query pending work item: %w", err)
	}

	now := time.Now()
	item, err = item.Update().
		SetState(workitem.StateIN_PROGRESS).
		SetWorkerID(w.id).
		SetLastAttemptAt(now).
		AddAttempts(1).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim work item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return item, nil
}

// finishItem transitions a claimed item to its terminal or retry state.
//
//   - Success: INDEXED, error cleared.
//   - Failure, attempts remaining: back to NEW so another worker can retry it.
//   - Failure, attempts exhausted: FAILED, with the error preserved for the
//     indexing-status dashboard.
func (w *Worker) finishItem(ctx context.Context, item *ent.WorkItem, result *ExecutionResult) error {
	update := w.client.WorkItem.UpdateOneID(item.ID)

	switch {
	case result.Error == nil:
		update = update.SetState(workitem.StateINDEXED).ClearError().ClearWorkerID()
	case item.Attempts < w.config.MaxAttempts:
		update = update.SetState(workitem.StateNEW).SetError(result.Error.Error()).ClearWorkerID()
	default:
		update = update.SetState(workitem.StateFAILED).SetError(result.Error.Error()).ClearWorkerID()
	}

	return update.Exec(ctx)
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentItemID = itemID
	w.lastActivity = time.Now()
}
