package kbclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jandamek/jervis/pkg/indexing"
	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// CPGSource streams a project's symbols from /ingest/cpg. It implements
// indexing.Source, the only boundary stage P1 of the pipeline depends on.
type CPGSource struct {
	client     *Client
	repoPath   string
	commitHash string
}

// NewCPGSource builds a symbol source bound to one checkout.
func NewCPGSource(client *Client, repoPath, commitHash string) *CPGSource {
	return &CPGSource{client: client, repoPath: repoPath, commitHash: commitHash}
}

// Discover streams /ingest/cpg's NDJSON symbol nodes as AnalysisItems. The
// item channel is closed when the stream ends; the error channel carries
// at most one value and is closed alongside it.
func (s *CPGSource) Discover(ctx context.Context, projectID string) (<-chan indexing.AnalysisItem, <-chan error) {
	items := make(chan indexing.AnalysisItem, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		reqBody := CPGRequest{ProjectID: projectID, RepoPath: s.repoPath, CommitHash: s.commitHash}
		raw, err := json.Marshal(reqBody)
		if err != nil {
			errs <- ingesterrors.NewDataError(fmt.Errorf("marshal cpg request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+"/ingest/cpg", bytes.NewReader(raw))
		if err != nil {
			errs <- ingesterrors.NewTransientError(err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/x-ndjson")
		if s.client.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+s.client.apiKey)
		}

		resp, err := s.client.httpClient.Do(httpReq)
		if err != nil {
			errs <- ingesterrors.NewTransientError(err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode >= 500 {
				errs <- ingesterrors.NewTransientError(fmt.Errorf("ingest/cpg: %d: %s", resp.StatusCode, body))
			} else {
				errs <- ingesterrors.NewDataError(fmt.Errorf("ingest/cpg: %d: %s", resp.StatusCode, body))
			}
			return
		}

		now := time.Now().UTC()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var node cpgNode
			if err := json.Unmarshal(line, &node); err != nil {
				errs <- ingesterrors.NewDataError(fmt.Errorf("decode cpg node: %w", err))
				return
			}

			item := indexing.AnalysisItem{
				FilePath:  node.FilePath,
				ProjectID: projectID,
				Timestamp: now,
				Symbol: indexing.Symbol{
					Type:        indexing.SymbolType(node.Type),
					FullName:    node.FullName,
					Signature:   node.Signature,
					LineStart:   node.LineStart,
					LineEnd:     node.LineEnd,
					NodeID:      node.NodeID,
					Language:    node.Language,
					Code:        node.Code,
					ParentClass: node.ParentClass,
				},
			}

			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- ingesterrors.NewTransientError(fmt.Errorf("read cpg stream: %w", err))
		}
	}()

	return items, errs
}
