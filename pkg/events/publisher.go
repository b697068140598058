package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// EventPublisher publishes events for WebSocket delivery.
// Persistent events are stored in the events table then broadcast via NOTIFY.
// Transient events (progress ticks, dialog prompts) are broadcast via NOTIFY only.
//
// Each public method accepts a specific typed payload struct — see payloads.go.
// Internally, payloads are marshaled to JSON and routed to the appropriate
// channel via persistAndNotify or notifyOnly.
type EventPublisher struct {
	db *sql.DB
}

// NewEventPublisher creates a new EventPublisher.
// The db parameter should be the *sql.DB from database.Client.DB().
func NewEventPublisher(db *sql.DB) *EventPublisher {
	return &EventPublisher{db: db}
}

// --- Typed public methods ---

// PublishIndexingStatus persists and broadcasts an indexing.status event.
// Used whenever a file's ledger entry (C7) transitions state.
func (p *EventPublisher) PublishIndexingStatus(ctx context.Context, payload IndexingStatusPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal IndexingStatusPayload: %w", err)
	}
	return p.persistAndNotify(ctx, payload.ProjectID, ProjectChannel(payload.ProjectID), payloadJSON)
}

// PublishIndexingProgress broadcasts an indexing.progress transient event
// (no DB persistence). Used for per-file pipeline step updates (C6).
func (p *EventPublisher) PublishIndexingProgress(ctx context.Context, payload IndexingProgressPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal IndexingProgressPayload: %w", err)
	}
	return p.notifyOnly(ctx, ProjectChannel(payload.ProjectID), payloadJSON)
}

// PublishPlanStatus persists a plan status event to the plan's own channel
// and broadcasts a transient copy to the global indexing/plans channel.
// Both publishes are best-effort: if the persistent one fails, the transient
// one is still attempted. Returns the first error encountered (if any).
func (p *EventPublisher) PublishPlanStatus(ctx context.Context, payload PlanStatusPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal PlanStatusPayload: %w", err)
	}

	var firstErr error
	if err := p.persistAndNotify(ctx, payload.PlanID, PlanChannel(payload.PlanID), payloadJSON); err != nil {
		slog.Warn("Failed to publish plan status to plan channel",
			"plan_id", payload.PlanID, "status", payload.Status, "error", err)
		firstErr = err
	}

	if err := p.notifyOnly(ctx, GlobalIndexingChannel, payloadJSON); err != nil {
		slog.Warn("Failed to publish plan status to global channel",
			"plan_id", payload.PlanID, "status", payload.Status, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// PublishPlanStep persists and broadcasts a plan.step event.
// Fired when a plan step (tool call) completes.
func (p *EventPublisher) PublishPlanStep(ctx context.Context, payload PlanStepPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal PlanStepPayload: %w", err)
	}
	return p.persistAndNotify(ctx, payload.PlanID, PlanChannel(payload.PlanID), payloadJSON)
}

// PublishDialogPrompt broadcasts a dialog.prompt transient event (no DB
// persistence). Published when the plan executor (C10) blocks on a
// clarifying answer from the user (C12).
func (p *EventPublisher) PublishDialogPrompt(ctx context.Context, payload DialogPromptPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal DialogPromptPayload: %w", err)
	}
	return p.notifyOnly(ctx, PlanChannel(payload.PlanID), payloadJSON)
}

// PublishDialogClosed broadcasts a dialog.closed transient event once the
// active dialog (C12) resolves.
func (p *EventPublisher) PublishDialogClosed(ctx context.Context, payload DialogClosedPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal DialogClosedPayload: %w", err)
	}
	return p.notifyOnly(ctx, PlanChannel(payload.PlanID), payloadJSON)
}

// PublishLinkDiscovered broadcasts a link.discovered transient event on the
// backend-to-backend links channel (C11). No WebSocket client subscribes to
// this channel; it is consumed only via NotifyListener.RegisterHandler.
func (p *EventPublisher) PublishLinkDiscovered(ctx context.Context, payload LinkDiscoveredPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal LinkDiscoveredPayload: %w", err)
	}
	return p.notifyOnly(ctx, LinkChannel, payloadJSON)
}

// --- Internal core methods ---

// persistAndNotify persists a pre-marshaled event to the database and broadcasts
// via NOTIFY in a single transaction (pg_notify is transactional — held until COMMIT).
func (p *EventPublisher) persistAndNotify(ctx context.Context, subjectID, channel string, payloadJSON []byte) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. Persist to events table (within transaction)
	var eventID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (subject_id, channel, payload, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		subjectID, channel, payloadJSON, time.Now(),
	).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("failed to persist event: %w", err)
	}

	// Build NOTIFY payload with db_event_id for catchup tracking.
	notifyPayload, err := injectDBEventIDAndTruncate(payloadJSON, eventID)
	if err != nil {
		return err
	}

	// 2. pg_notify within same transaction — held until COMMIT
	_, err = tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload)
	if err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}

	// 3. Commit — INSERT is persisted and NOTIFY fires atomically
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event transaction: %w", err)
	}

	return nil
}

// notifyOnly broadcasts a pre-marshaled event via NOTIFY without persisting to DB.
func (p *EventPublisher) notifyOnly(ctx context.Context, channel string, payloadJSON []byte) error {
	notifyPayload, err := truncateIfNeeded(string(payloadJSON))
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload)
	if err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}
	return nil
}

// --- Internal helpers ---

// injectDBEventIDAndTruncate adds db_event_id to the JSON payload for NOTIFY
// delivery and applies truncation if the result exceeds PostgreSQL's limit.
func injectDBEventIDAndTruncate(payloadJSON []byte, dbEventID int64) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload for db_event_id injection: %w", err)
	}
	m["db_event_id"] = dbEventID

	enrichedBytes, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal enriched NOTIFY payload: %w", err)
	}

	return truncateIfNeeded(string(enrichedBytes))
}

// truncateIfNeeded returns the payload string as-is if it fits within
// PostgreSQL's 8000-byte NOTIFY limit, otherwise returns a minimal
// truncation envelope with only routing fields.
func truncateIfNeeded(payloadStr string) (string, error) {
	if len(payloadStr) <= 7900 {
		return payloadStr, nil
	}
	return buildTruncatedPayload([]byte(payloadStr))
}

// buildTruncatedPayload creates a minimal truncation envelope from the full
// JSON payload bytes, extracting only the routing fields the client needs
// to fetch the complete event from the database.
func buildTruncatedPayload(payloadBytes []byte) (string, error) {
	var routing struct {
		Type      string `json:"type"`
		PlanID    string `json:"plan_id"`
		ProjectID string `json:"project_id"`
		DBEventID *int64 `json:"db_event_id,omitempty"`
	}
	if err := json.Unmarshal(payloadBytes, &routing); err != nil {
		return "", fmt.Errorf("failed to extract routing fields for truncation: %w", err)
	}

	truncated := map[string]any{
		"type":      routing.Type,
		"truncated": true,
	}
	if routing.PlanID != "" {
		truncated["plan_id"] = routing.PlanID
	}
	if routing.ProjectID != "" {
		truncated["project_id"] = routing.ProjectID
	}
	if routing.DBEventID != nil {
		truncated["db_event_id"] = *routing.DBEventID
	}

	truncBytes, err := json.Marshal(truncated)
	if err != nil {
		return "", fmt.Errorf("failed to marshal truncated payload: %w", err)
	}
	return string(truncBytes), nil
}
