package kbclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// Ingest posts one normalized item to /api/v1/ingest.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestResponse, error) {
	var resp IngestResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/ingest", req, &resp)
	return resp, err
}

// IngestGitStructure posts a project's directory-tree snapshot to
// /ingest/git-structure.
func (c *Client) IngestGitStructure(ctx context.Context, req GitStructureRequest) (IngestResponse, error) {
	var resp IngestResponse
	err := c.doJSON(ctx, http.MethodPost, "/ingest/git-structure", req, &resp)
	return resp, err
}

// IngestGitCommits posts a commit-history slice to /ingest/git-commits.
func (c *Client) IngestGitCommits(ctx context.Context, req GitCommitsRequest) (IngestResponse, error) {
	var resp IngestResponse
	err := c.doJSON(ctx, http.MethodPost, "/ingest/git-commits", req, &resp)
	return resp, err
}

// IngestFull posts a multipart request (the ingest metadata plus any
// attachments) to /ingest/full and streams back its NDJSON progress
// events. The returned channel is closed when the stream ends; the error
// channel carries at most one value.
func (c *Client) IngestFull(ctx context.Context, req IngestRequest, attachments []Attachment) (<-chan ProgressEvent, <-chan error) {
	events := make(chan ProgressEvent, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		body, contentType, err := encodeMultipart(req, attachments)
		if err != nil {
			errs <- ingesterrors.NewDataError(fmt.Errorf("encode multipart request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest/full", body)
		if err != nil {
			errs <- ingesterrors.NewTransientError(err)
			return
		}
		httpReq.Header.Set("Content-Type", contentType)
		httpReq.Header.Set("Accept", "application/x-ndjson")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			errs <- ingesterrors.NewTransientError(err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(resp.Body)
			if resp.StatusCode >= 500 {
				errs <- ingesterrors.NewTransientError(fmt.Errorf("ingest/full: %d: %s", resp.StatusCode, raw))
			} else {
				errs <- ingesterrors.NewDataError(fmt.Errorf("ingest/full: %d: %s", resp.StatusCode, raw))
			}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var event ProgressEvent
			if err := json.Unmarshal(line, &event); err != nil {
				errs <- ingesterrors.NewDataError(fmt.Errorf("decode progress event: %w", err))
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- ingesterrors.NewTransientError(fmt.Errorf("read progress stream: %w", err))
		}
	}()

	return events, errs
}

func encodeMultipart(req IngestRequest, attachments []Attachment) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	metaPart, err := w.CreateFormField("metadata")
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(metaPart).Encode(req); err != nil {
		return nil, "", err
	}

	for _, a := range attachments {
		part, err := w.CreateFormFile("attachments", a.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
