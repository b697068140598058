package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/workitem"
)

// EnqueueParams describes a work item to enqueue. SourceURN is the
// idempotency key: enqueuing the same SourceURN twice is a no-op when the
// existing row's SourceUpdatedAt is already at or after FetchedAt; a strictly
// newer FetchedAt instead refreshes the existing row back to NEW so it gets
// re-indexed.
type EnqueueParams struct {
	SourceURN string
	ClientID  string
	ProjectID string // optional
	Kind      string
	Priority  int
	Payload   map[string]any // optional
	FetchedAt time.Time      // upstream content's last-modified time; zero if unknown
}

// Enqueue inserts a new NEW work item keyed by SourceURN. If a row with the
// same SourceURN already exists, Enqueue compares its SourceUpdatedAt against
// params.FetchedAt: an existing row already as fresh is left untouched
// (INDEXED/IN_PROGRESS rows are not disturbed by a redundant poll), while a
// row whose upstream content has moved on is refreshed back to NEW with the
// new payload and timestamp so the worker pool re-indexes it.
func Enqueue(ctx context.Context, client *ent.Client, params EnqueueParams) (*ent.WorkItem, error) {
	existing, err := client.WorkItem.Query().
		Where(workitem.SourceURNEQ(params.SourceURN)).
		Only(ctx)
	if err == nil {
		return refreshIfNewer(ctx, client, existing, params)
	}
	if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("check existing work item for %s: %w", params.SourceURN, err)
	}

	builder := client.WorkItem.Create().
		SetID(uuid.NewString()).
		SetSourceURN(params.SourceURN).
		SetClientID(params.ClientID).
		SetKind(params.Kind).
		SetState(workitem.StateNEW).
		SetPriority(params.Priority)

	if params.ProjectID != "" {
		builder = builder.SetProjectID(params.ProjectID)
	}
	if params.Payload != nil {
		builder = builder.SetPayload(params.Payload)
	}
	if !params.FetchedAt.IsZero() {
		builder = builder.SetSourceUpdatedAt(params.FetchedAt)
	}

	item, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			// Lost a create race against another enqueuer of the same
			// SourceURN; the existing row wins, matching the no-op contract.
			existing, getErr := client.WorkItem.Query().
				Where(workitem.SourceURNEQ(params.SourceURN)).
				Only(ctx)
			if getErr != nil {
				return nil, fmt.Errorf("re-fetch work item after constraint race for %s: %w", params.SourceURN, getErr)
			}
			return refreshIfNewer(ctx, client, existing, params)
		}
		return nil, fmt.Errorf("enqueue work item for %s: %w", params.SourceURN, err)
	}
	return item, nil
}

// refreshIfNewer returns existing unchanged when its recorded SourceUpdatedAt
// is already at or after params.FetchedAt (or params.FetchedAt is unknown).
// Otherwise it refreshes existing back to NEW with the newer payload and
// timestamp, regardless of what state it was previously in — a stale
// INDEXED row must be re-indexed once the upstream content moves on.
func refreshIfNewer(ctx context.Context, client *ent.Client, existing *ent.WorkItem, params EnqueueParams) (*ent.WorkItem, error) {
	if params.FetchedAt.IsZero() {
		return existing, nil
	}
	if existing.SourceUpdatedAt != nil && !params.FetchedAt.After(*existing.SourceUpdatedAt) {
		return existing, nil
	}

	update := client.WorkItem.UpdateOne(existing).
		SetState(workitem.StateNEW).
		SetSourceUpdatedAt(params.FetchedAt).
		ClearError()
	if params.Payload != nil {
		update = update.SetPayload(params.Payload)
	}
	return update.Save(ctx)
}
