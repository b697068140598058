package kbclient

import (
	"context"
	"net/http"
)

// Retrieve runs a similarity search against the knowledge-base service's
// own retrieval index. The plan executor's RAG_SEARCH tool calls this.
func (c *Client) Retrieve(ctx context.Context, req RetrieveRequest) (RetrieveResponse, error) {
	var resp RetrieveResponse
	err := c.doJSON(ctx, http.MethodPost, "/retrieve", req, &resp)
	return resp, err
}

// Traverse walks the symbol/commit graph from a starting node. The plan
// executor's TRAVERSE tool calls this.
func (c *Client) Traverse(ctx context.Context, req TraverseRequest) (TraverseResponse, error) {
	var resp TraverseResponse
	err := c.doJSON(ctx, http.MethodPost, "/traverse", req, &resp)
	return resp, err
}

// Purge deletes every indexed artifact for a project, or one file within
// it when req.FilePath is set. The plan executor's PURGE tool calls this.
func (c *Client) Purge(ctx context.Context, req PurgeRequest) (PurgeResponse, error) {
	var resp PurgeResponse
	err := c.doJSON(ctx, http.MethodPost, "/purge", req, &resp)
	return resp, err
}

// Queue reports the service's own ingestion backlog for a project.
func (c *Client) Queue(ctx context.Context, projectID string) (QueueStatus, error) {
	var resp QueueStatus
	err := c.doJSON(ctx, http.MethodGet, "/queue?project_id="+projectID, nil, &resp)
	return resp, err
}
