// Package ledger implements C7, the indexing-status ledger: the source of
// truth for what is currently in the vector store for a given file (or,
// for code symbols, a given symbol path). The splitter (C6 stage P2)
// consults it to skip unchanged symbols and to atomically replace a path's
// prior vectors when re-indexing; the storage stage (P4) reports per-vector
// completion here.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/indexingstatus"
	"github.com/jandamek/jervis/pkg/events"
)

// ContentEntry is one vector recorded against a path: its vector id, the
// SHA-256 of the content it was built from, its length, a description, and
// the embedding model/dimension it was stored under (so a later process can
// locate and delete it without having embedded anything itself yet).
type ContentEntry struct {
	VectorID    string `json:"vectorId"`
	ContentHash string `json:"contentHash"`
	Length      int    `json:"len"`
	Description string `json:"description"`
	ModelName   string `json:"modelName"`
	Dimension   int    `json:"dimension"`
}

// Publisher is the subset of *events.EventPublisher the ledger needs to
// push indexing-status-page updates.
type Publisher interface {
	PublishIndexingStatus(ctx context.Context, payload events.IndexingStatusPayload) error
}

// Ledger is C7.
type Ledger struct {
	client    *ent.Client
	publisher Publisher
}

// New creates an indexing-status ledger.
func New(client *ent.Client, publisher Publisher) *Ledger {
	return &Ledger{client: client, publisher: publisher}
}

// ShouldIndex reports whether path needs (re-)indexing: true if no record
// exists yet, the record's commit hash differs from commitHash, or none of
// the record's recorded per-vector content hashes matches contentHash.
func (l *Ledger) ShouldIndex(ctx context.Context, projectID, path, commitHash, contentHash string) (bool, error) {
	rec, err := l.get(ctx, projectID, path)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return true, nil
	}
	if rec.GitCommitHash == nil || *rec.GitCommitHash != commitHash {
		return true, nil
	}

	for _, entry := range decodeContents(rec.Contents) {
		if entry.ContentHash == contentHash {
			return false, nil
		}
	}
	return true, nil
}

// StartIndexing marks path as INDEXING, creating the record if it doesn't
// exist yet.
func (l *Ledger) StartIndexing(ctx context.Context, projectID, path string) error {
	rec, err := l.get(ctx, projectID, path)
	if err != nil {
		return err
	}

	if rec == nil {
		_, err = l.client.IndexingStatus.Create().
			SetID(recordID(projectID, path)).
			SetProjectID(projectID).
			SetFilePath(path).
			SetState(indexingstatus.StateINDEXING).
			Save(ctx)
	} else {
		_, err = l.client.IndexingStatus.UpdateOneID(rec.ID).
			SetState(indexingstatus.StateINDEXING).
			ClearError().
			Save(ctx)
	}
	if err != nil {
		return fmt.Errorf("start indexing %s/%s: %w", projectID, path, err)
	}

	return l.publish(ctx, projectID, path, indexingstatus.StateINDEXING, "")
}

// CompleteIndexing atomically replaces path's prior contents[] with
// contents and marks it INDEXED under commitHash.
func (l *Ledger) CompleteIndexing(ctx context.Context, projectID, path, commitHash string, contents []ContentEntry) error {
	vectorIDs := make([]string, len(contents))
	raw := make([]map[string]interface{}, len(contents))
	for i, c := range contents {
		vectorIDs[i] = c.VectorID
		raw[i] = map[string]interface{}{
			"vectorId": c.VectorID, "contentHash": c.ContentHash,
			"len": c.Length, "description": c.Description,
			"modelName": c.ModelName, "dimension": c.Dimension,
		}
	}

	rec, err := l.get(ctx, projectID, path)
	if err != nil {
		return err
	}

	upsert := func(create bool) error {
		var err error
		if create {
			_, err = l.client.IndexingStatus.Create().
				SetID(recordID(projectID, path)).
				SetProjectID(projectID).
				SetFilePath(path).
				SetGitCommitHash(commitHash).
				SetVectorIds(vectorIDs).
				SetContents(raw).
				SetState(indexingstatus.StateINDEXED).
				Save(ctx)
		} else {
			_, err = l.client.IndexingStatus.UpdateOneID(rec.ID).
				SetGitCommitHash(commitHash).
				SetVectorIds(vectorIDs).
				SetContents(raw).
				SetState(indexingstatus.StateINDEXED).
				ClearError().
				Save(ctx)
		}
		return err
	}
	if err := upsert(rec == nil); err != nil {
		return fmt.Errorf("complete indexing %s/%s: %w", projectID, path, err)
	}

	return l.publish(ctx, projectID, path, indexingstatus.StateINDEXED, "")
}

// LastDimensions returns the embedding dimension last recorded against path
// for each model name found in its contents. It lets a freshly started
// process (whose in-memory dimension cache is empty) find the dimension a
// prior process's vectors for this file were stored under, so it can still
// delete them before re-indexing. Returns an empty map if path has no
// record yet.
func (l *Ledger) LastDimensions(ctx context.Context, projectID, path string) (map[string]int, error) {
	rec, err := l.get(ctx, projectID, path)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return map[string]int{}, nil
	}

	dims := make(map[string]int)
	for _, entry := range decodeContents(rec.Contents) {
		if entry.ModelName != "" && entry.Dimension > 0 {
			dims[entry.ModelName] = entry.Dimension
		}
	}
	return dims, nil
}

// FailIndexing marks path as FAILED with cause's message.
func (l *Ledger) FailIndexing(ctx context.Context, projectID, path string, cause error) error {
	rec, err := l.get(ctx, projectID, path)
	if err != nil {
		return err
	}

	msg := cause.Error()
	if rec == nil {
		_, err = l.client.IndexingStatus.Create().
			SetID(recordID(projectID, path)).
			SetProjectID(projectID).
			SetFilePath(path).
			SetState(indexingstatus.StateFAILED).
			SetError(msg).
			Save(ctx)
	} else {
		_, err = l.client.IndexingStatus.UpdateOneID(rec.ID).
			SetState(indexingstatus.StateFAILED).
			SetError(msg).
			Save(ctx)
	}
	if err != nil {
		return fmt.Errorf("fail indexing %s/%s: %w", projectID, path, err)
	}

	return l.publish(ctx, projectID, path, indexingstatus.StateFAILED, msg)
}

func (l *Ledger) get(ctx context.Context, projectID, path string) (*ent.IndexingStatus, error) {
	rec, err := l.client.IndexingStatus.Query().
		Where(indexingstatus.ProjectIDEQ(projectID), indexingstatus.FilePathEQ(path)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query indexing status %s/%s: %w", projectID, path, err)
	}
	return rec, nil
}

func (l *Ledger) publish(ctx context.Context, projectID, path string, state indexingstatus.State, errMsg string) error {
	if l.publisher == nil {
		return nil
	}
	return l.publisher.PublishIndexingStatus(ctx, events.IndexingStatusPayload{
		Type:      events.EventTypeIndexingStatus,
		ProjectID: projectID,
		FilePath:  path,
		State:     string(state),
		Error:     errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func recordID(projectID, path string) string {
	return projectID + ":" + path
}

func decodeContents(raw []map[string]interface{}) []ContentEntry {
	out := make([]ContentEntry, 0, len(raw))
	for _, m := range raw {
		entry := ContentEntry{}
		if v, ok := m["vectorId"].(string); ok {
			entry.VectorID = v
		}
		if v, ok := m["contentHash"].(string); ok {
			entry.ContentHash = v
		}
		if v, ok := m["description"].(string); ok {
			entry.Description = v
		}
		if v, ok := m["modelName"].(string); ok {
			entry.ModelName = v
		}
		switch v := m["len"].(type) {
		case int:
			entry.Length = v
		case float64:
			entry.Length = int(v)
		}
		switch v := m["dimension"].(type) {
		case int:
			entry.Dimension = v
		case float64:
			entry.Dimension = int(v)
		}
		out = append(out, entry)
	}
	return out
}
