package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/workitem"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for work items whose lease expired.
// All pods run this independently — operations are idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("Orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds IN_PROGRESS items whose lease has expired
// (no terminal transition within LeaseTimeout of being claimed) and either
// requeues them to NEW (attempts remaining) or marks them FAILED.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.LeaseTimeout)

	orphans, err := p.client.WorkItem.Query().
		Where(
			workitem.StateEQ(workitem.StateIN_PROGRESS),
			workitem.LastAttemptAtNotNil(),
			workitem.LastAttemptAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orphaned work items: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("Detected orphaned work items", "count", len(orphans))

	recovered := 0
	failed := 0
	for _, item := range orphans {
		if err := recoverOrphanedItem(ctx, p.client, item, p.config.MaxAttempts); err != nil {
			slog.Error("Failed to recover orphaned work item", "item_id", item.ID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("Orphan recovery completed with failures",
			"total_orphans", len(orphans),
			"recovered", recovered,
			"failed", failed)
	}

	return nil
}

// recoverOrphanedItem requeues a single orphaned item, or fails it permanently
// once its attempt budget is exhausted.
func recoverOrphanedItem(ctx context.Context, client *ent.Client, item *ent.WorkItem, maxAttempts int) error {
	log := slog.With("item_id", item.ID, "source_urn", item.SourceUrn, "old_worker_id", derefStr(item.WorkerID))

	errMsg := fmt.Sprintf("lease expired: no heartbeat from worker %s since %s",
		derefStr(item.WorkerID), formatOptionalTime(item.LastAttemptAt))

	nextState := workitem.StateNEW
	if item.Attempts >= maxAttempts {
		nextState = workitem.StateFAILED
	}

	err := client.WorkItem.UpdateOneID(item.ID).
		SetState(nextState).
		SetError(errMsg).
		ClearWorkerID().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover orphaned item: %w", err)
	}

	log.Warn("Orphaned work item recovered", "new_state", nextState)
	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of items claimed by this
// pod that were IN_PROGRESS when the pod previously crashed. Called once
// during startup, before the worker pool begins processing.
func CleanupStartupOrphans(ctx context.Context, client *ent.Client, podID string, maxAttempts int) error {
	orphans, err := client.WorkItem.Query().
		Where(
			workitem.StateEQ(workitem.StateIN_PROGRESS),
			workitem.WorkerIDHasPrefix(podID),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query startup orphans: %w", err)
	}

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("Found startup orphans from previous run", "pod_id", podID, "count", len(orphans))

	for _, item := range orphans {
		errMsg := fmt.Sprintf("pod %s restarted while item was in progress", podID)
		nextState := workitem.StateNEW
		if item.Attempts >= maxAttempts {
			nextState = workitem.StateFAILED
		}

		err := client.WorkItem.UpdateOneID(item.ID).
			SetState(nextState).
			SetError(errMsg).
			ClearWorkerID().
			Exec(ctx)
		if err != nil {
			slog.Error("Failed to mark startup orphan", "item_id", item.ID, "error", err)
			continue
		}

		slog.Info("Startup orphan recovered", "item_id", item.ID, "new_state", nextState)
	}

	return nil
}

func derefStr(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}
