// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/event"
	"github.com/jandamek/jervis/ent/plan"
	"github.com/jandamek/jervis/pkg/config"
)

// Service periodically enforces retention policies:
//   - Soft-deletes old terminal-status plans (COMPLETED, FAILED, FINALIZED)
//   - Removes events table rows past their TTL (the NOTIFY catchup log;
//     per-plan/project cleanup handles the normal case, this is a safety net)
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config *config.RetentionConfig
	client *ent.Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, client *ent.Client) *Service {
	return &Service{
		config: cfg,
		client: client,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"plan_retention_days", s.config.PlanRetentionDays,
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.softDeleteOldPlans(ctx)
	s.cleanupExpiredEvents(ctx)
}

func (s *Service) softDeleteOldPlans(ctx context.Context) {
	count, err := s.SoftDeleteOldPlans(ctx, s.config.PlanRetentionDays)
	if err != nil {
		slog.Error("Retention: soft-delete plans failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: soft-deleted old plans", "count", count)
	}
}

// SoftDeleteOldPlans marks terminal plans older than retentionDays as
// deleted (sets deleted_at) without removing the row, so dialog history
// lookups (C12) can still distinguish "never happened" from "expired".
func (s *Service) SoftDeleteOldPlans(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	count, err := s.client.Plan.Update().
		Where(
			plan.StatusIn(plan.StatusCOMPLETED, plan.StatusFAILED, plan.StatusFINALIZED),
			plan.UpdatedAtLT(cutoff),
			plan.DeletedAtIsNil(),
		).
		SetDeletedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to soft-delete old plans: %w", err)
	}
	return count, nil
}

func (s *Service) cleanupExpiredEvents(ctx context.Context) {
	count, err := s.CleanupExpiredEvents(ctx, s.config.EventTTL)
	if err != nil {
		slog.Error("Retention: event cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: cleaned up expired events", "count", count)
	}
}

// CleanupExpiredEvents deletes rows from the events table (the NOTIFY
// catchup log) older than ttl. The catchup window only needs to cover a
// client's brief reconnect gap, so old rows carry no further value.
func (s *Service) CleanupExpiredEvents(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	count, err := s.client.Event.Delete().
		Where(event.CreatedAtLT(cutoff)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired events: %w", err)
	}
	return count, nil
}
