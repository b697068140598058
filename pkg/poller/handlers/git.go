package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jandamek/jervis/ent"
	entconnection "github.com/jandamek/jervis/ent/connection"
	"github.com/jandamek/jervis/ent/gitcommitrecord"
	"github.com/jandamek/jervis/pkg/connection"
	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// GitAccount is one (connection, branch) pair the git handler polls. The
// branch is resolved lazily from refs/remotes/origin/HEAD if empty.
type GitAccount struct {
	Connection *ent.Connection
	ProjectID  string
	Branch     string
}

// Notifier is the subset of *slack.Service the git handler needs to
// announce connection auth failures. Optional; a nil Notifier disables it.
type Notifier interface {
	NotifyText(ctx context.Context, text string) error
}

// GitHandler is C5's git specialization of C4: for each account it ensures
// a local working copy, detects the default branch, lists recent commits,
// and enqueues each new one as a GitCommitRecord.
type GitHandler struct {
	client    *ent.Client
	connStore *connection.Store
	workDir   string // base directory under which per-project clones live
	links     LinkSubmitter
	notifier  Notifier
}

// NewGitHandler creates a git polling handler. workDir is the base
// directory for local working copies (one subdirectory per project).
func NewGitHandler(client *ent.Client, connStore *connection.Store, workDir string, links LinkSubmitter) *GitHandler {
	if links == nil {
		links = NoopLinkSubmitter{}
	}
	return &GitHandler{client: client, connStore: connStore, workDir: workDir, links: links}
}

// SetNotifier wires a Slack (or other) notifier for connection auth-failure
// alerts. Optional: a nil notifier (the default) disables them.
func (h *GitHandler) SetNotifier(notifier Notifier) {
	h.notifier = notifier
}

// ExecutePoll implements the poller.Hooks[GitAccount].ExecutePoll callback.
func (h *GitHandler) ExecutePoll(ctx context.Context, a GitAccount) error {
	repoDir := filepath.Join(h.workDir, a.Connection.ClientID, a.Connection.ID)

	if err := h.ensureWorkingCopy(ctx, a, repoDir); err != nil {
		return err
	}

	branch := a.Branch
	if branch == "" {
		var err error
		branch, err = h.defaultBranch(ctx, repoDir)
		if err != nil {
			return err
		}
	}

	commits, err := h.recentCommits(ctx, repoDir, branch, 50)
	if err != nil {
		return err
	}

	for _, c := range commits {
		if err := h.persistCommit(ctx, a, branch, c); err != nil {
			return fmt.Errorf("persist commit %s: %w", c.Hash, err)
		}
		h.submitCrossSourceLinks(ctx, a, branch, c)
	}

	return nil
}

// submitCrossSourceLinks hands off any URL mentioned in a commit message to
// C11 (e.g. a commit referencing a Jira ticket or Confluence page).
func (h *GitHandler) submitCrossSourceLinks(ctx context.Context, a GitAccount, branch string, c commitLine) {
	for _, url := range extractURLs(c.Message) {
		_ = h.links.Submit(ctx, LinkCandidate{
			URL:           url,
			ClientID:      a.Connection.ClientID,
			ProjectID:     a.ProjectID,
			SourceIndexer: "git",
			SourceRef:     branch + "@" + c.Hash,
		})
	}
}

// ensureWorkingCopy clones repoDir fresh with a shallow depth, or fetches
// into it if it already exists. Credentials are never embedded in the
// remote URL — a credential helper script is written instead.
func (h *GitHandler) ensureWorkingCopy(ctx context.Context, a GitAccount, repoDir string) error {
	if _, err := os.Stat(filepath.Join(repoDir, ".git")); err == nil {
		return h.runGit(ctx, a, repoDir, "fetch", "--all", "--prune")
	}

	if err := os.MkdirAll(filepath.Dir(repoDir), 0o755); err != nil {
		return fmt.Errorf("create working copy parent dir: %w", err)
	}

	return h.runGit(ctx, a, filepath.Dir(repoDir), "clone", "--depth", "50", a.Connection.BaseURL, repoDir)
}

// defaultBranch detects the remote default branch via
// refs/remotes/origin/HEAD, falling back to main then master.
func (h *GitHandler) defaultBranch(ctx context.Context, repoDir string) (string, error) {
	out, err := runGitCapture(ctx, repoDir, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(out)
		if idx := strings.LastIndex(ref, "/"); idx >= 0 {
			return ref[idx+1:], nil
		}
	}

	for _, candidate := range []string{"main", "master"} {
		if _, err := runGitCapture(ctx, repoDir, "rev-parse", "--verify", "origin/"+candidate); err == nil {
			return candidate, nil
		}
	}

	return "", ingesterrors.NewDataError(fmt.Errorf("could not determine default branch for %s", repoDir))
}

type commitLine struct {
	Hash       string
	Author     string
	CommitDate time.Time
	Message    string
}

// recentCommits lists the last n commits on branch as %H|%an|%aI|%s.
func (h *GitHandler) recentCommits(ctx context.Context, repoDir, branch string, n int) ([]commitLine, error) {
	out, err := runGitCapture(ctx, repoDir, "log", "origin/"+branch,
		"-n", strconv.Itoa(n), "--format=%H|%an|%aI|%s")
	if err != nil {
		return nil, err
	}

	var commits []commitLine
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		commitDate, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			commitDate = time.Now()
		}
		commits = append(commits, commitLine{
			Hash: parts[0], Author: parts[1], CommitDate: commitDate, Message: parts[3],
		})
	}
	return commits, nil
}

// persistCommit writes or skips one commit, keyed by (projectId, branch, hash).
func (h *GitHandler) persistCommit(ctx context.Context, a GitAccount, branch string, c commitLine) error {
	exists, err := h.client.GitCommitRecord.Query().
		Where(
			gitcommitrecord.ProjectIDEQ(a.ProjectID),
			gitcommitrecord.BranchEQ(branch),
			gitcommitrecord.HashEQ(c.Hash),
		).
		Exist(ctx)
	if err != nil {
		return fmt.Errorf("check existing commit record: %w", err)
	}
	if exists {
		return nil
	}

	id := a.Connection.ClientID + ":" + a.ProjectID + ":" + branch + ":" + c.Hash
	_, err = h.client.GitCommitRecord.Create().
		SetID(id).
		SetClientID(a.Connection.ClientID).
		SetProjectID(a.ProjectID).
		SetBranch(branch).
		SetHash(c.Hash).
		SetAuthor(c.Author).
		SetMessage(c.Message).
		SetCommitDate(c.CommitDate).
		SetState(gitcommitrecord.StateNEW).
		Save(ctx)
	if err != nil && !ent.IsConstraintError(err) {
		return err
	}
	return nil
}

// runGit executes a git subcommand against repoDir with an auth
// credential-helper wired in from a's connection, detecting auth failures
// on the way out.
func (h *GitHandler) runGit(ctx context.Context, a GitAccount, repoDir string, args ...string) error {
	helperPath, cleanup, err := writeCredentialHelper(repoDir, a.Connection)
	if err != nil {
		return fmt.Errorf("write credential helper: %w", err)
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ASKPASS=",
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=credential.helper",
		"GIT_CONFIG_VALUE_0="+helperPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if ingesterrors.IsAuthFailureMessage(msg) {
			if h.notifier != nil {
				_ = h.notifier.NotifyText(ctx, fmt.Sprintf(":warning: Git connection `%s` (client `%s`) failed authentication and was invalidated", a.Connection.ID, a.Connection.ClientID))
			}
			if invalidateErr := h.connStore.Invalidate(ctx, a.Connection.ID); invalidateErr != nil {
				return fmt.Errorf("%w (and failed to invalidate connection: %s)", ingesterrors.NewAuthError(a.Connection.ID, err), invalidateErr)
			}
			return ingesterrors.NewAuthError(a.Connection.ID, fmt.Errorf("%s: %s", err, msg))
		}
		return ingesterrors.NewTransientError(fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg))
	}
	return nil
}

// writeCredentialHelper writes a POSIX 0700 script under repoDir/.git that
// echoes the connection's credentials to git's credential protocol,
// avoiding ever embedding them in the remote URL or process args.
func writeCredentialHelper(repoDir string, conn *ent.Connection) (path string, cleanup func(), err error) {
	gitDir := filepath.Join(repoDir, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		return "", nil, err
	}

	helperPath := filepath.Join(gitDir, "credential-helper.sh")
	username, password := splitCredentials(conn)

	script := fmt.Sprintf("#!/bin/sh\nif [ \"$1\" = \"get\" ]; then\n  echo username=%s\n  echo password=%s\nfi\n", username, password)

	if err := os.WriteFile(helperPath, []byte(script), 0o700); err != nil {
		return "", nil, err
	}

	return helperPath, func() { _ = os.Remove(helperPath) }, nil
}

// splitCredentials extracts a (username, password/token) pair from a
// connection's opaque credential string, by auth type.
func splitCredentials(conn *ent.Connection) (username, password string) {
	switch conn.AuthType {
	case entconnection.AuthTypeBASIC:
		if u, p, ok := strings.Cut(conn.Credentials, ":"); ok {
			return u, p
		}
		return "", conn.Credentials
	default: // BEARER, OAUTH2: token goes in the password slot, per git's convention
		return "x-access-token", conn.Credentials
	}
}

func runGitCapture(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}
