package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/jandamek/jervis/pkg/poller/handlers"
	"github.com/stretchr/testify/assert"
)

func TestLinkFailureNotifier_RaisesADialog(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, 20*time.Millisecond)
	notifier := NewLinkFailureNotifier(c)

	notifier.NotifyLinkFailed(context.Background(), handlers.LinkCandidate{
		URL: "https://wiki.example.com/wiki/spaces/ENG/pages/1", ClientID: "client-1", SourceIndexer: "jira",
	}, "confluence")

	deadline := time.After(time.Second)
	for c.ActiveDialogID() == "" {
		select {
		case <-deadline:
			t.Fatal("dialog never became active")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	pub.mu.Lock()
	prompts := pub.prompts
	pub.mu.Unlock()
	assert.NotEmpty(t, prompts)
}
