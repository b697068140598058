package events

import (
	"context"
	"testing"

	testdb "github.com/jandamek/jervis/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLedger_GetCatchupEvents(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	e1, err := client.Event.Create().
		SetSubjectID("proj-1").
		SetChannel("project:proj-1").
		SetPayload(map[string]interface{}{"type": "indexing.status", "seq": float64(1)}).
		Save(ctx)
	require.NoError(t, err)

	e2, err := client.Event.Create().
		SetSubjectID("proj-1").
		SetChannel("project:proj-1").
		SetPayload(map[string]interface{}{"type": "indexing.status", "seq": float64(2)}).
		Save(ctx)
	require.NoError(t, err)

	// Different channel, must not appear in results.
	_, err = client.Event.Create().
		SetSubjectID("proj-2").
		SetChannel("project:proj-2").
		SetPayload(map[string]interface{}{"type": "indexing.status", "seq": float64(99)}).
		Save(ctx)
	require.NoError(t, err)

	ledger := NewEventLedger(client.Client)
	result, err := ledger.GetCatchupEvents(ctx, "project:proj-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, e1.ID, result[0].ID)
	assert.Equal(t, e2.ID, result[1].ID)
	assert.Equal(t, float64(1), result[0].Payload["seq"])
}

func TestEventLedger_GetCatchupEvents_SinceIDExcludesOlder(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	e1, err := client.Event.Create().
		SetSubjectID("proj-1").
		SetChannel("project:proj-1").
		SetPayload(map[string]interface{}{"seq": float64(1)}).
		Save(ctx)
	require.NoError(t, err)

	e2, err := client.Event.Create().
		SetSubjectID("proj-1").
		SetChannel("project:proj-1").
		SetPayload(map[string]interface{}{"seq": float64(2)}).
		Save(ctx)
	require.NoError(t, err)

	ledger := NewEventLedger(client.Client)
	result, err := ledger.GetCatchupEvents(ctx, "project:proj-1", e1.ID, 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, e2.ID, result[0].ID)
}

func TestEventLedger_GetCatchupEvents_Limit(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.Event.Create().
			SetSubjectID("proj-1").
			SetChannel("project:proj-1").
			SetPayload(map[string]interface{}{"i": float64(i)}).
			Save(ctx)
		require.NoError(t, err)
	}

	ledger := NewEventLedger(client.Client)
	result, err := ledger.GetCatchupEvents(ctx, "project:proj-1", 0, 2)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestEventLedger_GetCatchupEvents_Empty(t *testing.T) {
	client := testdb.NewTestClient(t)
	ledger := NewEventLedger(client.Client)

	result, err := ledger.GetCatchupEvents(context.Background(), "project:nonexistent", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}
