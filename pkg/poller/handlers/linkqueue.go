package handlers

import "context"

// LinkCandidate is a URL observed by one handler that may belong to another
// source type (C11 cross-indexer hand-off).
type LinkCandidate struct {
	URL           string
	ClientID      string
	ProjectID     string // optional
	SourceIndexer string // the handler kind that observed the URL
	SourceRef     string // e.g. the commit hash or issue key the URL was found in
}

// LinkSubmitter is the C11 link-queue's inbound side, as seen by C5
// handlers. pkg/linkqueue.Queue implements this.
type LinkSubmitter interface {
	Submit(ctx context.Context, candidate LinkCandidate) error
}

// NoopLinkSubmitter discards every candidate. Used by handlers under test,
// or when cross-indexer hand-off is not wired.
type NoopLinkSubmitter struct{}

// Submit implements LinkSubmitter by discarding candidate.
func (NoopLinkSubmitter) Submit(context.Context, LinkCandidate) error { return nil }
