package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIndexingStatusPayload(t *testing.T) {
	t.Run("creates payload with all fields", func(t *testing.T) {
		payload := IndexingStatusPayload{
			Type:      EventTypeIndexingStatus,
			ProjectID: "proj-1",
			FilePath:  "pkg/queue/pool.go",
			State:     "INDEXED",
			Timestamp: time.Now().Format(time.RFC3339Nano),
		}

		assert.Equal(t, EventTypeIndexingStatus, payload.Type)
		assert.Equal(t, "proj-1", payload.ProjectID)
		assert.Equal(t, "pkg/queue/pool.go", payload.FilePath)
		assert.Equal(t, "INDEXED", payload.State)
		assert.Empty(t, payload.Error)
	})

	t.Run("failed state carries an error message", func(t *testing.T) {
		payload := IndexingStatusPayload{
			Type:      EventTypeIndexingStatus,
			ProjectID: "proj-1",
			FilePath:  "pkg/queue/pool.go",
			State:     "FAILED",
			Error:     "embedding request timed out",
			Timestamp: time.Now().Format(time.RFC3339Nano),
		}

		assert.Equal(t, "FAILED", payload.State)
		assert.Contains(t, payload.Error, "timed out")
	})
}

func TestIndexingProgressPayload(t *testing.T) {
	payload := IndexingProgressPayload{
		Type:      EventTypeIndexingProgress,
		ProjectID: "proj-1",
		FilePath:  "pkg/queue/pool.go",
		Step:      "chunking",
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, EventTypeIndexingProgress, payload.Type)
	assert.Equal(t, "chunking", payload.Step)
}

func TestPlanStatusPayload(t *testing.T) {
	t.Run("supports each plan status", func(t *testing.T) {
		statuses := []string{"PENDING", "RUNNING", "COMPLETED", "FAILED", "FINALIZED"}

		for _, status := range statuses {
			payload := PlanStatusPayload{
				Type:      EventTypePlanStatus,
				PlanID:    "plan-1",
				Status:    status,
				Timestamp: time.Now().Format(time.RFC3339Nano),
			}

			assert.Equal(t, status, payload.Status)
		}
	})
}

func TestPlanStepPayload(t *testing.T) {
	payload := PlanStepPayload{
		Type:      EventTypePlanStep,
		PlanID:    "plan-1",
		StepID:    "step-2",
		Tool:      "search_code",
		Status:    "DONE",
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, EventTypePlanStep, payload.Type)
	assert.Equal(t, "plan-1", payload.PlanID)
	assert.Equal(t, "search_code", payload.Tool)
	assert.Equal(t, "DONE", payload.Status)
}

func TestDialogPromptPayload(t *testing.T) {
	t.Run("carries options for a clarification prompt", func(t *testing.T) {
		payload := DialogPromptPayload{
			Type:      EventTypeDialogPrompt,
			PlanID:    "plan-1",
			Question:  "Which project did you mean?",
			Options:   []string{"frontend", "backend"},
			Timestamp: time.Now().Format(time.RFC3339Nano),
		}

		assert.Equal(t, EventTypeDialogPrompt, payload.Type)
		assert.Len(t, payload.Options, 2)
	})

	t.Run("options are optional for an open-ended prompt", func(t *testing.T) {
		payload := DialogPromptPayload{
			Type:      EventTypeDialogPrompt,
			PlanID:    "plan-1",
			Question:  "Can you rephrase that?",
			Timestamp: time.Now().Format(time.RFC3339Nano),
		}

		assert.Empty(t, payload.Options)
	})
}

func TestDialogClosedPayload(t *testing.T) {
	payload := DialogClosedPayload{
		Type:      EventTypeDialogClosed,
		PlanID:    "plan-1",
		Reason:    "timeout",
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, EventTypeDialogClosed, payload.Type)
	assert.Equal(t, "timeout", payload.Reason)
}

func TestLinkDiscoveredPayload(t *testing.T) {
	payload := LinkDiscoveredPayload{
		Type:          EventTypeLinkDiscovered,
		SourceProject: "frontend",
		SourceFile:    "src/api/client.ts",
		TargetProject: "backend",
		TargetRef:     "pkg/api/server.go",
		Timestamp:     time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, EventTypeLinkDiscovered, payload.Type)
	assert.Equal(t, "frontend", payload.SourceProject)
	assert.Equal(t, "backend", payload.TargetProject)
}

func TestPayloadTypes(t *testing.T) {
	t.Run("every payload type constant is distinct", func(t *testing.T) {
		types := []string{
			EventTypeIndexingStatus,
			EventTypeIndexingProgress,
			EventTypePlanStatus,
			EventTypePlanStep,
			EventTypeDialogPrompt,
			EventTypeDialogClosed,
			EventTypeLinkDiscovered,
		}

		seen := make(map[string]bool)
		for _, ty := range types {
			assert.False(t, seen[ty], "duplicate event type constant %q", ty)
			seen[ty] = true
		}
	})
}
