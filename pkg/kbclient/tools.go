package kbclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jandamek/jervis/pkg/mcp"
)

// toolNameRAGSearch, toolNameTraverse, and toolNamePurge are the fixed tool
// set the plan executor can call against the knowledge-base service —
// there is no server-side tool discovery to front here, unlike a real MCP
// server, so ListTools returns this same fixed list.
const (
	toolNameRAGSearch = "RAG_SEARCH"
	toolNameTraverse  = "TRAVERSE"
	toolNamePurge     = "PURGE"
)

// ToolExecutor adapts Client to mcp.ToolExecutorInterface, letting the plan
// executor call the knowledge-base service's retrieve/traverse/purge
// endpoints the same way it calls any MCP-hosted tool — no MCP server sits
// in front of this service, so this executor fronts it directly.
type ToolExecutor struct {
	client    *Client
	projectID string
	clientID  string
}

var _ mcp.ToolExecutorInterface = (*ToolExecutor)(nil)

// NewToolExecutor builds a tool executor defaulting to the given
// project/client pair. A call's arguments may override either with a
// "projectId"/"clientId" field, letting one executor instance serve
// requests scoped to different projects.
func NewToolExecutor(client *Client, projectID, clientID string) *ToolExecutor {
	return &ToolExecutor{client: client, projectID: projectID, clientID: clientID}
}

// Execute dispatches call to the matching knowledge-base endpoint. When
// call.Arguments is the plan executor's step envelope
// ({"instruction","context","planId"}), the tool's actual parameters are
// expected to live as a JSON object string under "instruction" — the
// plan-decomposition prompt is written to produce exactly that shape — and
// are parsed out before dispatch. Arguments that carry the tool's
// parameters directly (no "instruction" wrapper) are used as-is, which is
// what the fixed RAG_SEARCH/TRAVERSE/PURGE parameter schemas ListTools
// advertises describe.
func (e *ToolExecutor) Execute(ctx context.Context, call mcp.ToolCall) (*mcp.ToolResult, error) {
	args, err := mcp.ParseActionInput(call.Arguments)
	if err != nil {
		return &mcp.ToolResult{CallID: call.ID, Name: call.Name, Content: err.Error(), IsError: true}, nil
	}
	if instruction := stringArg(args, "instruction"); instruction != "" {
		if toolArgs, err := mcp.ParseActionInput(instruction); err == nil {
			args = toolArgs
		}
	}

	projectID, clientID := e.projectID, e.clientID
	if v := stringArg(args, "projectId"); v != "" {
		projectID = v
	}
	if v := stringArg(args, "clientId"); v != "" {
		clientID = v
	}

	var (
		result  any
		callErr error
	)
	switch call.Name {
	case toolNameRAGSearch:
		result, callErr = e.client.Retrieve(ctx, RetrieveRequest{
			ProjectID: projectID,
			ClientID:  clientID,
			Query:     stringArg(args, "query"),
			Limit:     intArg(args, "limit"),
		})
	case toolNameTraverse:
		result, callErr = e.client.Traverse(ctx, TraverseRequest{
			ProjectID: projectID,
			ClientID:  clientID,
			NodeID:    stringArg(args, "nodeId"),
			Direction: stringArg(args, "direction"),
			MaxDepth:  intArg(args, "maxDepth"),
		})
	case toolNamePurge:
		result, callErr = e.client.Purge(ctx, PurgeRequest{
			ProjectID: projectID,
			ClientID:  clientID,
			FilePath:  stringArg(args, "filePath"),
		})
	default:
		return &mcp.ToolResult{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("unknown tool %q", call.Name), IsError: true}, nil
	}

	if callErr != nil {
		return &mcp.ToolResult{CallID: call.ID, Name: call.Name, Content: callErr.Error(), IsError: true}, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("kbclient: marshal %s result: %w", call.Name, err)
	}
	return &mcp.ToolResult{CallID: call.ID, Name: call.Name, Content: string(raw)}, nil
}

// ListTools returns the fixed RAG_SEARCH/TRAVERSE/PURGE tool set.
func (e *ToolExecutor) ListTools(ctx context.Context) ([]mcp.ToolDefinition, error) {
	return []mcp.ToolDefinition{
		{Name: toolNameRAGSearch, Description: "Similarity search over indexed project knowledge", ParametersSchema: `{"type":"object","required":["query"],"properties":{"query":{"type":"string"},"limit":{"type":"integer"}}}`},
		{Name: toolNameTraverse, Description: "Walk the symbol/commit graph from a node", ParametersSchema: `{"type":"object","required":["nodeId"],"properties":{"nodeId":{"type":"string"},"direction":{"type":"string"},"maxDepth":{"type":"integer"}}}`},
		{Name: toolNamePurge, Description: "Delete indexed artifacts for a project or file", ParametersSchema: `{"type":"object","properties":{"filePath":{"type":"string"}}}`},
	}, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
