// Package events provides real-time event delivery via WebSocket and
// PostgreSQL NOTIFY/LISTEN for cross-pod distribution.
//
// ════════════════════════════════════════════════════════════════
// Event categories
// ════════════════════════════════════════════════════════════════
//
// Persistent events (stored in the events table + NOTIFY) back the
// catchup mechanism: a client that reconnects mid-pipeline replays
// everything it missed instead of re-fetching full state.
//
//   indexing.status      — a project file's ledger entry changed state (C7)
//   plan.status          — a plan transitioned lifecycle state (C10)
//   plan.step            — a plan step (tool call) completed (C10)
//
// Transient events (NOTIFY only, no DB row) are high-frequency or
// purely advisory — losing one on disconnect is harmless because the
// next persistent event (or a REST refetch) supersedes it.
//
//   indexing.progress     — fine-grained pipeline step for one file (C6)
//   dialog.prompt         — the plan executor is blocked on a user answer (C12)
//   dialog.closed         — the active dialog resolved, answered or timed out (C12)
//   link.discovered       — cross-indexer reference found (C11); delivered
//                           only to the internal NotifyListener handler, never
//                           broadcast to WebSocket clients
//
// ════════════════════════════════════════════════════════════════
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	EventTypeIndexingStatus = "indexing.status"
	EventTypePlanStatus     = "plan.status"
	EventTypePlanStep       = "plan.step"
)

// Transient event types (NOTIFY only, no DB persistence).
const (
	EventTypeIndexingProgress = "indexing.progress"
	EventTypeDialogPrompt     = "dialog.prompt"
	EventTypeDialogClosed     = "dialog.closed"
	EventTypeLinkDiscovered   = "link.discovered"
)

// GlobalIndexingChannel is the channel for cross-project indexing summary
// events. The ingestion dashboard subscribes to this for a fleet-wide view.
const GlobalIndexingChannel = "indexing"

// ProjectChannel returns the channel name for a specific project's indexing
// events (status changes and progress for every file under that project).
// Format: "project:{project_id}"
func ProjectChannel(projectID string) string {
	return "project:" + projectID
}

// PlanChannel returns the channel name for a specific plan's lifecycle and
// step events, plus any dialog prompts raised while executing it.
// Format: "plan:{plan_id}"
func PlanChannel(planID string) string {
	return "plan:" + planID
}

// LinkChannel is the backend-to-backend channel used by C11's cross-indexer
// link queue to notify other pods that a reference was discovered. No
// WebSocket client subscribes to it directly; it is consumed only via
// NotifyListener.RegisterHandler.
const LinkChannel = "links"

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // Channel name (e.g., "project:abc-123")
	LastEventID *int   `json:"last_event_id,omitempty"` // For catchup
}
