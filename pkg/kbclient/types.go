package kbclient

// ProgressEvent is one line of the NDJSON stream /ingest/full may emit
// while it processes a multipart upload.
type ProgressEvent struct {
	Type     string         `json:"type"` // "progress" or "result"
	Step     string         `json:"step"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// IngestRequest is one normalized item handed to /api/v1/ingest.
type IngestRequest struct {
	ProjectID   string            `json:"project_id"`
	ClientID    string            `json:"client_id"`
	SourceURN   string            `json:"source_urn"`
	ContentType string            `json:"content_type"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IngestResponse is the synchronous acknowledgement for /api/v1/ingest.
type IngestResponse struct {
	Status string `json:"status"`
}

// Attachment is one file attached to a /ingest/full multipart request.
type Attachment struct {
	Filename string
	Content  []byte
}

// GitStructureRequest drives /ingest/git-structure: a full directory-tree
// snapshot at commitHash.
type GitStructureRequest struct {
	ProjectID  string `json:"project_id"`
	ClientID   string `json:"client_id"`
	RepoURL    string `json:"repo_url"`
	CommitHash string `json:"commit_hash"`
}

// GitCommitsRequest drives /ingest/git-commits: the commit-history slice
// between two refs.
type GitCommitsRequest struct {
	ProjectID string `json:"project_id"`
	ClientID  string `json:"client_id"`
	RepoURL   string `json:"repo_url"`
	SinceRef  string `json:"since_ref,omitempty"`
	UntilRef  string `json:"until_ref"`
}

// CPGRequest drives /ingest/cpg: stream the code-property graph (one
// symbol node per NDJSON line) for a project at commitHash.
type CPGRequest struct {
	ProjectID  string `json:"project_id"`
	ClientID   string `json:"client_id"`
	RepoPath   string `json:"repo_path"`
	CommitHash string `json:"commit_hash"`
}

// cpgNode is one NDJSON line from /ingest/cpg, matching stage P1's symbol
// shape on the wire.
type cpgNode struct {
	FilePath    string `json:"file_path"`
	Type        string `json:"type"`
	FullName    string `json:"full_name"`
	Signature   string `json:"signature"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	NodeID      string `json:"node_id"`
	Language    string `json:"language"`
	Code        string `json:"code"`
	ParentClass string `json:"parent_class,omitempty"`
}

// RetrieveRequest drives /retrieve: a similarity search scoped to a
// project/client.
type RetrieveRequest struct {
	ProjectID string `json:"project_id"`
	ClientID  string `json:"client_id"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

// RetrieveHit is one result from /retrieve.
type RetrieveHit struct {
	VectorID string  `json:"vector_id"`
	FilePath string  `json:"file_path"`
	Symbol   string  `json:"symbol"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// RetrieveResponse is /retrieve's response body.
type RetrieveResponse struct {
	Results []RetrieveHit `json:"results"`
}

// TraverseRequest drives /traverse: walk the symbol/commit graph from a
// starting node.
type TraverseRequest struct {
	ProjectID string `json:"project_id"`
	ClientID  string `json:"client_id"`
	NodeID    string `json:"node_id"`
	Direction string `json:"direction"` // "callers" | "callees" | "both"
	MaxDepth  int    `json:"max_depth,omitempty"`
}

// GraphNode is one node in a /traverse response.
type GraphNode struct {
	NodeID   string   `json:"node_id"`
	FilePath string   `json:"file_path"`
	Symbol   string   `json:"symbol"`
	Edges    []string `json:"edges"`
}

// TraverseResponse is /traverse's response body.
type TraverseResponse struct {
	Nodes []GraphNode `json:"nodes"`
}

// PurgeRequest drives /purge: delete every indexed artifact for a project
// or a single file within it.
type PurgeRequest struct {
	ProjectID string `json:"project_id"`
	ClientID  string `json:"client_id"`
	FilePath  string `json:"file_path,omitempty"` // empty purges the whole project
}

// PurgeResponse reports how much was purged.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// QueueStatus reports the external service's own ingestion backlog for a
// project, distinct from this orchestrator's own work queue (C3).
type QueueStatus struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
}
