package handlers

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/jandamek/jervis/ent"
	entconnection "github.com/jandamek/jervis/ent/connection"
	"github.com/jandamek/jervis/pkg/connection"
	testdb "github.com/jandamek/jervis/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireGit skips the test when the git binary isn't on PATH.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// initBareOrigin creates a local bare repo with one commit on main,
// standing in for a remote so ensureWorkingCopy can clone over a file://
// URL without any network access.
func initBareOrigin(t *testing.T) string {
	t.Helper()
	requireGit(t)

	seed := t.TempDir()
	run(t, seed, "init", "-b", "main")
	run(t, seed, "config", "user.email", "test@example.com")
	run(t, seed, "config", "user.name", "Test")
	writeFile(t, filepath.Join(seed, "README.md"), "hello\n")
	run(t, seed, "add", "README.md")
	run(t, seed, "commit", "-m", "see https://wiki.example.com/wiki/spaces/ENG/pages/9 for context")

	bareDir := t.TempDir()
	run(t, "", "clone", "--bare", seed, bareDir)
	return bareDir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func gitConnection(t *testing.T, client *ent.Client, baseURL string) *ent.Connection {
	t.Helper()
	store := connection.New(client)
	c, err := store.Create(context.Background(), connection.CreateParams{
		Kind: "git", BaseURL: baseURL, AuthType: entconnection.AuthTypeBASIC,
		Credentials: "", ClientID: "client-1",
	})
	require.NoError(t, err)
	return c
}

func TestGitHandler_ExecutePoll_ClonesAndRecordsCommitsAndLinks(t *testing.T) {
	originDir := initBareOrigin(t)
	client := testdb.NewTestClient(t)
	conn := gitConnection(t, client.Client, originDir)

	links := &fakeLinkSubmitter{}
	h := NewGitHandler(client.Client, connection.New(client.Client), t.TempDir(), links)

	err := h.ExecutePoll(context.Background(), GitAccount{Connection: conn, ProjectID: "proj-1", Branch: "main"})
	require.NoError(t, err)

	count, err := client.GitCommitRecord.Query().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, links.submitted, 1)
	assert.Equal(t, "git", links.submitted[0].SourceIndexer)
}

func TestGitHandler_ExecutePoll_SecondPollFetchesAndSkipsDuplicateCommits(t *testing.T) {
	originDir := initBareOrigin(t)
	client := testdb.NewTestClient(t)
	conn := gitConnection(t, client.Client, originDir)

	h := NewGitHandler(client.Client, connection.New(client.Client), t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, h.ExecutePoll(ctx, GitAccount{Connection: conn, ProjectID: "proj-1", Branch: "main"}))
	require.NoError(t, h.ExecutePoll(ctx, GitAccount{Connection: conn, ProjectID: "proj-1", Branch: "main"}))

	count, err := client.GitCommitRecord.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
