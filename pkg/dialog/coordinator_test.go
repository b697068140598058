package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jandamek/jervis/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	prompts []events.DialogPromptPayload
	closes  []events.DialogClosedPayload
}

func (f *fakePublisher) PublishDialogPrompt(ctx context.Context, p events.DialogPromptPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return nil
}

func (f *fakePublisher) PublishDialogClosed(ctx context.Context, p events.DialogClosedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, p)
	return nil
}

func TestCoordinator_RequestDialog_ResolvesOnClientResponse(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, time.Minute)

	go func() {
		for c.ActiveDialogID() == "" {
			time.Sleep(time.Millisecond)
		}
		ok := c.HandleClientResponse(c.ActiveDialogID(), "corr-1", "the frontend project")
		assert.True(t, ok)
	}()

	result, err := c.RequestDialog(context.Background(), "plan-1", "client-1", "proj-1", "corr-1", "Which project?", nil)
	require.NoError(t, err)
	assert.True(t, result.Answered)
	assert.Equal(t, "the frontend project", result.Answer)

	require.Len(t, pub.closes, 1)
	assert.Equal(t, "answered", pub.closes[0].Reason)
}

func TestCoordinator_RequestDialog_TimesOut(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, 10*time.Millisecond)

	result, err := c.RequestDialog(context.Background(), "plan-1", "client-1", "", "corr-1", "Still there?", nil)
	require.NoError(t, err)
	assert.False(t, result.Answered)
	assert.Equal(t, "timeout", result.Reason)
}

func TestCoordinator_HandleClientResponse_RejectsMismatchedCorrelation(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, time.Minute)

	go func() {
		for c.ActiveDialogID() == "" {
			time.Sleep(time.Millisecond)
		}
		id := c.ActiveDialogID()

		ok := c.HandleClientResponse(id, "wrong-correlation", "ignored")
		assert.False(t, ok)

		// the real answer, after the mismatched one was rejected and left
		// the dialog untouched
		ok = c.HandleClientResponse(id, "corr-1", "real answer")
		assert.True(t, ok)
	}()

	result, err := c.RequestDialog(context.Background(), "plan-1", "client-1", "", "corr-1", "Which one?", nil)
	require.NoError(t, err)
	assert.Equal(t, "real answer", result.Answer)
}

// TestCoordinator_SerializesConcurrentRequests starts two RequestDialog
// calls concurrently and answers them one at a time, confirming that a
// second caller's dialog never becomes active while the first is still
// pending.
func TestCoordinator_SerializesConcurrentRequests(t *testing.T) {
	pub := &fakePublisher{}
	c := New(pub, time.Minute)
	ctx := context.Background()

	results := make([]Result, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := c.RequestDialog(ctx, "plan-1", "client-1", "", "corr-a", "A?", nil)
		require.NoError(t, err)
		results[0] = r
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond) // let corr-a's dialog become active first
		r, err := c.RequestDialog(ctx, "plan-1", "client-1", "", "corr-b", "B?", nil)
		require.NoError(t, err)
		results[1] = r
	}()

	for _, correlationID := range []string{"corr-a", "corr-b"} {
		var id string
		for {
			if id = c.ActiveDialogID(); id != "" {
				break
			}
			time.Sleep(time.Millisecond)
		}
		require.True(t, c.HandleClientResponse(id, correlationID, "answer-"+correlationID[len(correlationID)-1:]))
		for c.ActiveDialogID() == id {
			time.Sleep(time.Millisecond)
		}
	}

	wg.Wait()
	assert.Equal(t, "answer-a", results[0].Answer)
	assert.Equal(t, "answer-b", results[1].Answer)
}
