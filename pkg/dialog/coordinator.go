// Package dialog implements C12, the user-dialog coordinator: an
// at-most-one-in-flight synchronization primitive bridging the plan
// executor (C10) to an interactive UI. A tool blocked on a clarifying
// question awaits a future that resolves when the client answers, closes
// the dialog, or a timeout elapses.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jandamek/jervis/pkg/events"
)

// DefaultTimeout is how long requestDialog waits for a client response
// before resolving as "closed by user".
const DefaultTimeout = 15 * time.Minute

// Result is what a dialog resolves to: the client's answer, or a closing
// reason when no answer arrived.
type Result struct {
	Answered bool
	Answer   string
	Reason   string // "answered", "closed_by_user", "timeout"
}

// Publisher is the subset of *events.EventPublisher the coordinator needs.
type Publisher interface {
	PublishDialogPrompt(ctx context.Context, payload events.DialogPromptPayload) error
	PublishDialogClosed(ctx context.Context, payload events.DialogClosedPayload) error
}

// dialog is the coordinator's single active slot. result is set exactly
// once before done is closed; done is what both the owning RequestDialog
// call and any queued-up caller select on, so a queued caller observing
// completion never races the owner for the buffered value.
type dialog struct {
	id            string
	correlationID string
	clientID      string
	projectID     string
	done          chan struct{}
	result        Result
	once          sync.Once
}

func (d *dialog) resolve(r Result) {
	d.once.Do(func() { d.result = r; close(d.done) })
}

// Coordinator guarantees at most one active dialog across the process.
// Concurrent requestDialog calls are serialized: a caller that arrives
// while a dialog is active blocks until it resolves, then becomes the new
// active dialog.
type Coordinator struct {
	mu        sync.Mutex
	active    *dialog
	publisher Publisher
	timeout   time.Duration
}

// New creates a dialog coordinator. timeout <= 0 uses DefaultTimeout.
func New(publisher Publisher, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{publisher: publisher, timeout: timeout}
}

// RequestDialog publishes a clarifying question to the UI and blocks until
// it is answered, explicitly closed, or times out. If another dialog is
// already active, this call first waits for it to resolve before starting
// its own — guaranteeing serialization rather than rejecting the caller.
func (c *Coordinator) RequestDialog(ctx context.Context, planID, clientID, projectID, correlationID, question string, options []string) (Result, error) {
	for {
		c.mu.Lock()
		if c.active == nil {
			break
		}
		prior := c.active
		c.mu.Unlock()

		select {
		case <-prior.done:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	d := &dialog{
		id:            uuid.NewString(),
		correlationID: correlationID,
		clientID:      clientID,
		projectID:     projectID,
		done:          make(chan struct{}),
	}
	c.active = d
	c.mu.Unlock()

	if err := c.publisher.PublishDialogPrompt(ctx, events.DialogPromptPayload{
		Type:      events.EventTypeDialogPrompt,
		PlanID:    planID,
		Question:  question,
		Options:   options,
		Timestamp: timestamp(),
	}); err != nil {
		c.clear(d)
		return Result{}, fmt.Errorf("publish dialog prompt: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-d.done:
	case <-timer.C:
		d.resolve(Result{Reason: "timeout"})
	case <-ctx.Done():
		c.clear(d)
		return Result{}, ctx.Err()
	}
	result := d.result

	c.clear(d)

	_ = c.publisher.PublishDialogClosed(ctx, events.DialogClosedPayload{
		Type:      events.EventTypeDialogClosed,
		PlanID:    planID,
		Reason:    closeReason(result),
		Timestamp: timestamp(),
	})

	return result, nil
}

// HandleClientResponse delivers a client's answer to the active dialog. A
// mismatched dialogId or correlationId is rejected with a warning and
// leaves coordinator state untouched.
func (c *Coordinator) HandleClientResponse(dialogID, correlationID, answer string) bool {
	c.mu.Lock()
	d := c.active
	c.mu.Unlock()

	if d == nil || d.id != dialogID || d.correlationID != correlationID {
		slog.Warn("dialog response for unknown or mismatched dialog",
			"dialog_id", dialogID, "correlation_id", correlationID)
		return false
	}

	d.resolve(Result{Answered: true, Answer: answer, Reason: "answered"})
	return true
}

// HandleClientClose explicitly closes the active dialog without an answer.
// A mismatched dialogId or correlationId is rejected the same way as
// HandleClientResponse.
func (c *Coordinator) HandleClientClose(dialogID, correlationID string) bool {
	c.mu.Lock()
	d := c.active
	c.mu.Unlock()

	if d == nil || d.id != dialogID || d.correlationID != correlationID {
		slog.Warn("dialog close for unknown or mismatched dialog",
			"dialog_id", dialogID, "correlation_id", correlationID)
		return false
	}

	d.resolve(Result{Reason: "closed_by_user"})
	return true
}

// ActiveDialogID returns the id of the currently active dialog, or "" if
// none is active. Used to address HandleClientResponse/HandleClientClose
// calls from the API layer.
func (c *Coordinator) ActiveDialogID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.id
}

func (c *Coordinator) clear(d *dialog) {
	c.mu.Lock()
	if c.active == d {
		c.active = nil
	}
	c.mu.Unlock()
}

func closeReason(r Result) string {
	if r.Reason != "" {
		return r.Reason
	}
	return "answered"
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
