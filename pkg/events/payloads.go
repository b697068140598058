package events

// IndexingStatusPayload is the payload for indexing.status events.
// Published whenever a file's ledger entry (C7) transitions state.
type IndexingStatusPayload struct {
	Type      string `json:"type"` // always EventTypeIndexingStatus
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path"`
	State     string `json:"state"`           // PENDING, INDEXING, INDEXED, FAILED
	Error     string `json:"error,omitempty"` // set only when State is FAILED
	Timestamp string `json:"timestamp"`       // RFC3339Nano
}

// IndexingProgressPayload is the payload for indexing.progress transient events.
// Published for each pipeline step (C6) while a single file is being processed.
type IndexingProgressPayload struct {
	Type      string `json:"type"` // always EventTypeIndexingProgress
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path"`
	Step      string `json:"step"` // discovery, splitting, embedding, storing, complete
	Timestamp string `json:"timestamp"`
}

// PlanStatusPayload is the payload for plan.status events.
// Published when a plan (C10) transitions between lifecycle states.
type PlanStatusPayload struct {
	Type      string `json:"type"` // always EventTypePlanStatus
	PlanID    string `json:"plan_id"`
	Status    string `json:"status"` // PENDING, RUNNING, COMPLETED, FAILED, FINALIZED
	Timestamp string `json:"timestamp"`
}

// PlanStepPayload is the payload for plan.step events.
// Published each time a plan step (tool call) completes.
type PlanStepPayload struct {
	Type      string `json:"type"` // always EventTypePlanStep
	PlanID    string `json:"plan_id"`
	StepID    string `json:"step_id"`
	Tool      string `json:"tool"`
	Status    string `json:"status"` // completed, failed
	Timestamp string `json:"timestamp"`
}

// DialogPromptPayload is the payload for dialog.prompt transient events.
// Published when the plan executor (C10) blocks waiting on a clarifying
// answer from the user (C12).
type DialogPromptPayload struct {
	Type      string   `json:"type"` // always EventTypeDialogPrompt
	PlanID    string   `json:"plan_id"`
	Question  string   `json:"question"`
	Options   []string `json:"options,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// DialogClosedPayload is the payload for dialog.closed transient events.
// Published by the dialog coordinator (C12) once the active dialog resolves,
// whether by client answer, a mismatched-close rejection, or a timeout.
type DialogClosedPayload struct {
	Type      string `json:"type"` // always EventTypeDialogClosed
	PlanID    string `json:"plan_id"`
	Reason    string `json:"reason"` // answered, closed_by_user, timeout
	Timestamp string `json:"timestamp"`
}

// LinkDiscoveredPayload is the payload for link.discovered events, delivered
// backend-to-backend only (C11). Published when one indexer discovers a
// reference into another project's content during splitting/embedding.
type LinkDiscoveredPayload struct {
	Type          string `json:"type"` // always EventTypeLinkDiscovered
	SourceProject string `json:"source_project"`
	SourceFile    string `json:"source_file"`
	TargetProject string `json:"target_project"`
	TargetRef     string `json:"target_ref"` // file path or symbol the source links to
	Timestamp     string `json:"timestamp"`
}
