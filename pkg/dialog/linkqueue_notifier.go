package dialog

import (
	"context"
	"fmt"

	"github.com/jandamek/jervis/pkg/poller/handlers"
)

// LinkFailureNotifier adapts Coordinator to linkqueue.UserTaskNotifier: a
// link the queue gave up on after three failed hand-offs is surfaced to the
// user as a dialog rather than silently dropped.
type LinkFailureNotifier struct {
	coordinator *Coordinator
}

// NewLinkFailureNotifier wraps coordinator for use as a linkqueue.Queue's
// UserTaskNotifier.
func NewLinkFailureNotifier(coordinator *Coordinator) *LinkFailureNotifier {
	return &LinkFailureNotifier{coordinator: coordinator}
}

// NotifyLinkFailed implements linkqueue.UserTaskNotifier.
func (n *LinkFailureNotifier) NotifyLinkFailed(ctx context.Context, candidate handlers.LinkCandidate, kind string) {
	question := fmt.Sprintf(
		"Could not hand off %s (observed by %s) to the %s indexer after repeated failures. Index it manually?",
		candidate.URL, candidate.SourceIndexer, kind,
	)
	// Best-effort: a dialog request that itself fails (e.g. no UI
	// connected) shouldn't block the caller that reported the failure.
	go func() {
		_, _ = n.coordinator.RequestDialog(context.Background(), "", candidate.ClientID, candidate.ProjectID, candidate.URL, question, nil)
	}()
}
