package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/jandamek/jervis/ent/plan"
	"github.com/jandamek/jervis/pkg/config"
	testdb "github.com/jandamek/jervis/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetentionConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		PlanRetentionDays: 365,
		EventTTL:          1 * time.Hour,
		CleanupInterval:   1 * time.Hour,
	}
}

func TestService_SoftDeletesOldCompletedPlans(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	p, err := client.Plan.Create().
		SetID("plan-old-completed").
		SetContextID("ctx-1").
		SetStatus(plan.StatusCOMPLETED).
		SetOriginalQuestion("what changed in auth last quarter?").
		SetEnglishQuestion("what changed in auth last quarter?").
		SetOriginalLanguage("en").
		Save(ctx)
	require.NoError(t, err)

	err = client.Plan.UpdateOneID(p.ID).
		SetUpdatedAt(time.Now().Add(-400 * 24 * time.Hour)).
		Exec(ctx)
	require.NoError(t, err)

	svc := NewService(testRetentionConfig(), client.Client)
	svc.runAll(ctx)

	updated, err := client.Plan.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.DeletedAt)
}

func TestService_PreservesRecentPlans(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	p, err := client.Plan.Create().
		SetID("plan-recent").
		SetContextID("ctx-1").
		SetStatus(plan.StatusCOMPLETED).
		SetOriginalQuestion("where is the retry logic?").
		SetEnglishQuestion("where is the retry logic?").
		SetOriginalLanguage("en").
		Save(ctx)
	require.NoError(t, err)

	svc := NewService(testRetentionConfig(), client.Client)
	svc.runAll(ctx)

	updated, err := client.Plan.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.DeletedAt)
}

func TestService_PreservesRunningPlans(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	p, err := client.Plan.Create().
		SetID("plan-running").
		SetContextID("ctx-1").
		SetStatus(plan.StatusRUNNING).
		SetOriginalQuestion("still being answered").
		SetEnglishQuestion("still being answered").
		SetOriginalLanguage("en").
		Save(ctx)
	require.NoError(t, err)

	err = client.Plan.UpdateOneID(p.ID).
		SetUpdatedAt(time.Now().Add(-400 * 24 * time.Hour)).
		Exec(ctx)
	require.NoError(t, err)

	svc := NewService(testRetentionConfig(), client.Client)
	svc.runAll(ctx)

	updated, err := client.Plan.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.DeletedAt, "non-terminal plans are never soft-deleted regardless of age")
}

func TestService_CleansUpExpiredEvents(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	_, err := client.Event.Create().
		SetSubjectID("plan-1").
		SetChannel("plan:plan-1").
		SetPayload(map[string]any{"type": "plan.status"}).
		SetCreatedAt(time.Now().Add(-2 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	recent, err := client.Event.Create().
		SetSubjectID("plan-1").
		SetChannel("plan:plan-1").
		SetPayload(map[string]any{"type": "plan.status"}).
		SetCreatedAt(time.Now()).
		Save(ctx)
	require.NoError(t, err)

	svc := NewService(testRetentionConfig(), client.Client)
	svc.runAll(ctx)

	remaining, err := client.Event.Query().All(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1, "expired event should be deleted, recent event preserved")
	assert.Equal(t, recent.ID, remaining[0].ID)
}
