package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/pollingstate"
)

// PollingStateStore persists the incremental cursor for each
// (connectionId, tool) pair that C4/C5 poll.
type PollingStateStore struct {
	client *ent.Client
}

// NewPollingStateStore creates a polling-state store backed by client.
func NewPollingStateStore(client *ent.Client) *PollingStateStore {
	return &PollingStateStore{client: client}
}

// Get fetches the polling state for (connectionID, tool), or nil if the
// pair has never been polled. A nil lastPoll is how C4 decides this is the
// account's first cycle.
func (s *PollingStateStore) Get(ctx context.Context, connectionID, tool string) (*ent.PollingState, error) {
	ps, err := s.client.PollingState.Query().
		Where(
			pollingstate.ConnectionIDEQ(connectionID),
			pollingstate.ToolEQ(tool),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get polling state for %s/%s: %w", connectionID, tool, err)
	}
	return ps, nil
}

// RecordPoll upserts the polling state for (connectionID, tool) after a
// successful poll, advancing lastPolledAt to now and lastSeenUpdatedAt to
// the caller-supplied high-water mark (only if non-zero — callers pass the
// zero time when nothing new was observed this cycle).
func (s *PollingStateStore) RecordPoll(ctx context.Context, connectionID, tool string, lastSeenUpdatedAt time.Time) error {
	now := time.Now()

	existing, err := s.Get(ctx, connectionID, tool)
	if err != nil {
		return err
	}

	if existing == nil {
		builder := s.client.PollingState.Create().
			SetID(uuid.NewString()).
			SetConnectionID(connectionID).
			SetTool(tool).
			SetLastPolledAt(now)
		if !lastSeenUpdatedAt.IsZero() {
			builder = builder.SetLastSeenUpdatedAt(lastSeenUpdatedAt)
		}
		if _, err := builder.Save(ctx); err != nil {
			return fmt.Errorf("create polling state for %s/%s: %w", connectionID, tool, err)
		}
		return nil
	}

	update := existing.Update().SetLastPolledAt(now)
	if !lastSeenUpdatedAt.IsZero() && (existing.LastSeenUpdatedAt == nil || lastSeenUpdatedAt.After(*existing.LastSeenUpdatedAt)) {
		update = update.SetLastSeenUpdatedAt(lastSeenUpdatedAt)
	}
	if _, err := update.Save(ctx); err != nil {
		return fmt.Errorf("update polling state for %s/%s: %w", connectionID, tool, err)
	}
	return nil
}
