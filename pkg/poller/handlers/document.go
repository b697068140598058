package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/pkg/connection"
	"github.com/jandamek/jervis/pkg/ingesterrors"
	"github.com/jandamek/jervis/pkg/queue"
)

// NormalizedItem is what a C2 document-style source client (issue tracker,
// wiki, mail) returns for one fetched record.
type NormalizedItem struct {
	SourceURN string
	UpdatedAt time.Time
	Kind      string // e.g. "jira-issue", "confluence-page", "mail-message"
	Body      string // used for cross-indexer link scanning
	Payload   map[string]any
}

// DocumentSource is the C2 adapter contract shared by the issue-tracker,
// wiki, and mail handlers so downstream code can treat them uniformly.
type DocumentSource interface {
	// FetchUpdatedSince returns items updated at or after since, oldest
	// first. since is the zero time on an account's first poll.
	FetchUpdatedSince(ctx context.Context, conn *ent.Connection, since time.Time) ([]NormalizedItem, error)
}

// DocumentAccount is one (connection, tool) pair a DocumentHandler polls.
type DocumentAccount struct {
	Connection *ent.Connection
	Tool       string // polling-state key, e.g. "jira", "confluence", "mail"
}

// DocumentHandler is C5's shared specialization for REST-polled document
// sources: issue trackers, wikis, mail. It builds a time-filtered query
// from the account's cursor, upserts each fetched item into the work
// queue, and hands off any cross-source URLs it notices to C11.
type DocumentHandler struct {
	client          *ent.Client
	pollingStates   *connection.PollingStateStore
	source          DocumentSource
	links           LinkSubmitter
	defaultLookback time.Duration // applied when an account has never been polled
}

// NewDocumentHandler creates a document-source polling handler.
func NewDocumentHandler(client *ent.Client, pollingStates *connection.PollingStateStore, source DocumentSource, links LinkSubmitter, defaultLookback time.Duration) *DocumentHandler {
	if links == nil {
		links = NoopLinkSubmitter{}
	}
	if defaultLookback <= 0 {
		defaultLookback = 7 * 24 * time.Hour
	}
	return &DocumentHandler{
		client: client, pollingStates: pollingStates, source: source,
		links: links, defaultLookback: defaultLookback,
	}
}

// ExecutePoll implements the poller.Hooks[DocumentAccount].ExecutePoll callback.
func (h *DocumentHandler) ExecutePoll(ctx context.Context, a DocumentAccount) error {
	ps, err := h.pollingStates.Get(ctx, a.Connection.ID, a.Tool)
	if err != nil {
		return ingesterrors.NewTransientError(fmt.Errorf("read polling state: %w", err))
	}

	since := time.Now().Add(-h.defaultLookback)
	if ps != nil && ps.LastSeenUpdatedAt != nil {
		since = *ps.LastSeenUpdatedAt
	}

	items, err := h.source.FetchUpdatedSince(ctx, a.Connection, since)
	if err != nil {
		return err // already classified by the source client
	}

	maxSeen := since
	for _, item := range items {
		if err := h.upsertItem(ctx, a, item); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.SourceURN, err)
		}
		h.submitCrossSourceLinks(ctx, a, item)
		if item.UpdatedAt.After(maxSeen) {
			maxSeen = item.UpdatedAt
		}
	}

	return h.pollingStates.RecordPoll(ctx, a.Connection.ID, a.Tool, maxSeen)
}

// upsertItem enqueues item as a work item. Enqueue (C3) is idempotent on
// SourceURN: a record already INDEXED or IN_PROGRESS for an unchanged item
// is left alone, but one whose upstream content is newer than what was last
// recorded is refreshed back to NEW so it gets re-indexed.
func (h *DocumentHandler) upsertItem(ctx context.Context, a DocumentAccount, item NormalizedItem) error {
	projectID := ""
	if a.Connection.ProjectID != nil {
		projectID = *a.Connection.ProjectID
	}
	_, err := queue.Enqueue(ctx, h.client, queue.EnqueueParams{
		SourceURN: item.SourceURN,
		ClientID:  a.Connection.ClientID,
		ProjectID: projectID,
		Kind:      item.Kind,
		Payload:   item.Payload,
		FetchedAt: item.UpdatedAt,
	})
	return err
}

// submitCrossSourceLinks scans item.Body for URLs and hands every one of
// them to C11. The link queue — not the handler — decides whether a URL
// belongs to another known source kind, is a self-handoff, or is a
// duplicate: the handler's job ends at observing the URL.
func (h *DocumentHandler) submitCrossSourceLinks(ctx context.Context, a DocumentAccount, item NormalizedItem) {
	for _, url := range extractURLs(item.Body) {
		projectID := ""
		if a.Connection.ProjectID != nil {
			projectID = *a.Connection.ProjectID
		}
		_ = h.links.Submit(ctx, LinkCandidate{
			URL:           url,
			ClientID:      a.Connection.ClientID,
			ProjectID:     projectID,
			SourceIndexer: a.Tool,
			SourceRef:     item.SourceURN,
		})
	}
}

// extractURLs returns every http(s) URL found in text, in order of
// appearance.
func extractURLs(text string) []string {
	var urls []string
	for _, field := range strings.Fields(text) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			urls = append(urls, strings.Trim(field, ".,;)\"'"))
		}
	}
	return urls
}
