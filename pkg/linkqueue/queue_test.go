package linkqueue

import (
	"context"
	"testing"

	"github.com/jandamek/jervis/pkg/poller/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(url, sourceIndexer string) handlers.LinkCandidate {
	return handlers.LinkCandidate{
		URL: url, ClientID: "client-1", ProjectID: "proj-1",
		SourceIndexer: sourceIndexer, SourceRef: "ref-1",
	}
}

func TestQueue_SubmitTwiceYieldsOnePendingRecord(t *testing.T) {
	q := New(nil)
	ctx := context.Background()

	require.NoError(t, q.Submit(ctx, candidate("https://wiki.example.com/wiki/spaces/ENG/pages/1", "jira")))
	require.NoError(t, q.Submit(ctx, candidate("https://wiki.example.com/wiki/spaces/ENG/pages/1/", "jira")))

	pending := q.Drain("confluence")
	assert.Len(t, pending, 1)
}

func TestQueue_RefusesSelfHandoff(t *testing.T) {
	q := New(nil)
	ctx := context.Background()

	require.NoError(t, q.Submit(ctx, candidate("https://jira.example.com/browse/PROJ-1", "jira")))

	assert.Empty(t, q.Drain("jira"))
}

func TestQueue_UnrecognizedURLIsDropped(t *testing.T) {
	q := New(nil)
	ctx := context.Background()

	require.NoError(t, q.Submit(ctx, candidate("https://example.com/random/page", "jira")))

	assert.Empty(t, q.Drain("jira"))
	assert.Empty(t, q.Drain("confluence"))
}

type fakeNotifier struct {
	failed []handlers.LinkCandidate
}

func (f *fakeNotifier) NotifyLinkFailed(ctx context.Context, c handlers.LinkCandidate, kind string) {
	f.failed = append(f.failed, c)
}

func TestQueue_MarkFailedThreeTimesEscalatesAndRemoves(t *testing.T) {
	notifier := &fakeNotifier{}
	q := New(notifier)
	ctx := context.Background()
	url := "https://wiki.example.com/wiki/spaces/ENG/pages/1"

	require.NoError(t, q.Submit(ctx, candidate(url, "jira")))

	q.MarkFailed(ctx, url)
	assert.Len(t, q.Drain("confluence"), 1, "still pending after 1 failure")

	q.MarkFailed(ctx, url)
	assert.Len(t, q.Drain("confluence"), 1, "still pending after 2 failures")

	q.MarkFailed(ctx, url)
	assert.Empty(t, q.Drain("confluence"), "removed after 3rd failure")
	require.Len(t, notifier.failed, 1)
	assert.Equal(t, url, notifier.failed[0].URL)
}

func TestQueue_MarkSucceededRemovesEntry(t *testing.T) {
	q := New(nil)
	ctx := context.Background()
	url := "https://wiki.example.com/wiki/spaces/ENG/pages/1"

	require.NoError(t, q.Submit(ctx, candidate(url, "jira")))
	q.MarkSucceeded(url)

	assert.Empty(t, q.Drain("confluence"))
}
