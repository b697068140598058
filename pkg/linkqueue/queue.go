// Package linkqueue implements C11, the in-process cross-indexer hand-off
// queue. Polling handlers (pkg/poller/handlers) observe URLs inside the
// content they fetch and hand them here; the queue decides whether a URL
// belongs to another known source kind, refuses self-handoffs, and dedups
// by normalized URL. A URL that keeps failing is escalated as a user task
// rather than retried forever.
package linkqueue

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/jandamek/jervis/pkg/poller/handlers"
)

// maxAttempts is how many times a link may fail before it is dropped from
// the queue and escalated.
const maxAttempts = 3

// sourcePatterns maps a URL substring to the source kind that owns URLs
// shaped that way.
var sourcePatterns = map[string]string{
	"/browse/":      "jira",
	"/wiki/spaces/": "confluence",
}

// UserTaskNotifier is how the queue escalates a link that has failed
// maxAttempts times. pkg/dialog or pkg/slack can implement this once wired;
// NoopUserTaskNotifier is the default.
type UserTaskNotifier interface {
	NotifyLinkFailed(ctx context.Context, candidate handlers.LinkCandidate, kind string)
}

// NoopUserTaskNotifier discards every escalation.
type NoopUserTaskNotifier struct{}

func (NoopUserTaskNotifier) NotifyLinkFailed(context.Context, handlers.LinkCandidate, string) {}

type entry struct {
	candidate handlers.LinkCandidate
	kind      string // classified target source kind
	attempts  int
}

// Queue is C11. It is safe for concurrent use; submissions are idempotent
// by normalized URL.
type Queue struct {
	mu       sync.Mutex
	entries  map[string]*entry // normalized URL -> entry
	notifier UserTaskNotifier
}

// New creates an empty link queue. notifier may be nil, in which case
// failures are escalated nowhere.
func New(notifier UserTaskNotifier) *Queue {
	if notifier == nil {
		notifier = NoopUserTaskNotifier{}
	}
	return &Queue{entries: make(map[string]*entry), notifier: notifier}
}

// Submit implements handlers.LinkSubmitter. It classifies the candidate's
// URL, refuses self-handoffs and unrecognized patterns, and is a no-op if
// an equivalent normalized URL is already pending.
func (q *Queue) Submit(ctx context.Context, candidate handlers.LinkCandidate) error {
	kind := classify(candidate.URL)
	if kind == "" {
		return nil
	}
	if kind == candidate.SourceIndexer {
		return nil // self-handoff
	}

	key := normalize(candidate.URL)
	if key == "" {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.entries[key]; exists {
		return nil
	}
	q.entries[key] = &entry{candidate: candidate, kind: kind}
	return nil
}

// MarkFailed records one failed hand-off attempt for the normalized URL.
// After the third failure the entry is removed and escalated as a user
// task. MarkFailed on a URL with no pending entry is a no-op.
func (q *Queue) MarkFailed(ctx context.Context, rawURL string) {
	key := normalize(rawURL)
	if key == "" {
		return
	}

	q.mu.Lock()
	e, ok := q.entries[key]
	if !ok {
		q.mu.Unlock()
		return
	}
	e.attempts++
	var escalate *entry
	if e.attempts >= maxAttempts {
		delete(q.entries, key)
		escalate = e
	}
	q.mu.Unlock()

	if escalate != nil {
		slog.Warn("link hand-off exhausted retries, escalating as user task",
			"url", escalate.candidate.URL, "kind", escalate.kind, "attempts", escalate.attempts)
		q.notifier.NotifyLinkFailed(ctx, escalate.candidate, escalate.kind)
	}
}

// MarkSucceeded removes a pending entry once its hand-off has been acted
// on (e.g. the target handler has enqueued a work item for it).
func (q *Queue) MarkSucceeded(rawURL string) {
	key := normalize(rawURL)
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.entries, key)
	q.mu.Unlock()
}

// PendingCandidate pairs a queued candidate with its classified target kind.
type PendingCandidate struct {
	Candidate handlers.LinkCandidate
	Kind      string
}

// Drain returns every pending candidate for the given target source kind,
// snapshotting the queue without removing anything (callers confirm
// success via MarkSucceeded or failure via MarkFailed).
func (q *Queue) Drain(kind string) []PendingCandidate {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []PendingCandidate
	for _, e := range q.entries {
		if e.kind == kind {
			out = append(out, PendingCandidate{Candidate: e.candidate, Kind: e.kind})
		}
	}
	return out
}

// classify identifies a URL's owning source kind by substring pattern.
func classify(rawURL string) string {
	for pattern, kind := range sourcePatterns {
		if strings.Contains(rawURL, pattern) {
			return kind
		}
	}
	return ""
}

// normalize canonicalizes a URL for dedup purposes: trim, lowercase, strip
// trailing slash, drop query and fragment.
func normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return strings.ToLower(strings.TrimSuffix(trimmed, "/"))
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""

	normalized := strings.ToLower(parsed.String())
	return strings.TrimSuffix(normalized, "/")
}
