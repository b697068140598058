package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/jandamek/jervis/ent/indexingstatus"
	testdb "github.com/jandamek/jervis/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_ShouldIndex_TrueWhenNoRecord(t *testing.T) {
	client := testdb.NewTestClient(t)
	l := New(client.Client, nil)

	should, err := l.ShouldIndex(context.Background(), "proj-1", "pkg/foo.go:Foo", "abc123", "hash-1")
	require.NoError(t, err)
	assert.True(t, should)
}

func TestLedger_ShouldIndex_FalseWhenCommitAndContentHashMatch(t *testing.T) {
	client := testdb.NewTestClient(t)
	l := New(client.Client, nil)
	ctx := context.Background()

	require.NoError(t, l.StartIndexing(ctx, "proj-1", "pkg/foo.go:Foo"))
	require.NoError(t, l.CompleteIndexing(ctx, "proj-1", "pkg/foo.go:Foo", "abc123", []ContentEntry{
		{VectorID: "vec-1", ContentHash: "hash-1", Length: 42, Description: "Foo function"},
	}))

	should, err := l.ShouldIndex(ctx, "proj-1", "pkg/foo.go:Foo", "abc123", "hash-1")
	require.NoError(t, err)
	assert.False(t, should)
}

func TestLedger_ShouldIndex_TrueWhenCommitHashDiffers(t *testing.T) {
	client := testdb.NewTestClient(t)
	l := New(client.Client, nil)
	ctx := context.Background()

	require.NoError(t, l.StartIndexing(ctx, "proj-1", "pkg/foo.go:Foo"))
	require.NoError(t, l.CompleteIndexing(ctx, "proj-1", "pkg/foo.go:Foo", "abc123", []ContentEntry{
		{VectorID: "vec-1", ContentHash: "hash-1"},
	}))

	should, err := l.ShouldIndex(ctx, "proj-1", "pkg/foo.go:Foo", "def456", "hash-1")
	require.NoError(t, err)
	assert.True(t, should)
}

func TestLedger_CompleteIndexing_ReplacesContentsAtomically(t *testing.T) {
	client := testdb.NewTestClient(t)
	l := New(client.Client, nil)
	ctx := context.Background()

	require.NoError(t, l.CompleteIndexing(ctx, "proj-1", "pkg/foo.go:Foo", "abc123", []ContentEntry{
		{VectorID: "vec-1", ContentHash: "hash-1"},
		{VectorID: "vec-2", ContentHash: "hash-2"},
	}))
	require.NoError(t, l.CompleteIndexing(ctx, "proj-1", "pkg/foo.go:Foo", "def456", []ContentEntry{
		{VectorID: "vec-3", ContentHash: "hash-3"},
	}))

	rec, err := client.IndexingStatus.Query().
		Where(indexingstatus.ProjectIDEQ("proj-1"), indexingstatus.FilePathEQ("pkg/foo.go:Foo")).
		Only(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vec-3"}, rec.VectorIds)
	assert.Equal(t, indexingstatus.StateINDEXED, rec.State)
}

func TestLedger_FailIndexing_SetsStateAndError(t *testing.T) {
	client := testdb.NewTestClient(t)
	l := New(client.Client, nil)
	ctx := context.Background()

	require.NoError(t, l.StartIndexing(ctx, "proj-1", "pkg/foo.go:Foo"))
	require.NoError(t, l.FailIndexing(ctx, "proj-1", "pkg/foo.go:Foo", errors.New("embedding timed out")))

	rec, err := client.IndexingStatus.Query().
		Where(indexingstatus.ProjectIDEQ("proj-1"), indexingstatus.FilePathEQ("pkg/foo.go:Foo")).
		Only(ctx)
	require.NoError(t, err)
	assert.Equal(t, indexingstatus.StateFAILED, rec.State)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "embedding timed out", *rec.Error)
}
