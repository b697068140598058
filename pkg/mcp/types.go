// Package mcp defines the narrow tool-call contract the plan executor
// (C10) programs against, plus the argument-parsing cascade
// (ParseActionInput) shared by every ToolExecutorInterface implementation.
//
// This package no longer carries a real Model Context Protocol client: the
// only tool backend C10 is wired against is the knowledge-base service's
// own REST API (see pkg/kbclient.ToolExecutor), which speaks its own JSON
// request/response shapes, not MCP's JSON-RPC transport. Keeping the type
// names and ParseActionInput here (rather than folding them into
// pkg/kbclient) keeps the plan executor's dependency the same narrow shape
// regardless of which concrete tool backend is wired behind it.
package mcp

import "context"

// ToolCall is a single tool invocation requested by the plan executor (C10)
// while working through a plan step.
type ToolCall struct {
	ID        string // correlates a ToolCall to its ToolResult
	Name      string // "server.tool" or "server__tool"
	Arguments string // JSON object or key=value pairs, see ParseActionInput
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// ToolDefinition describes a tool available for the plan executor to call.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string // JSON schema, serialized
}

// ToolExecutorInterface is what C10's plan executor depends on, so it can
// be tested against a stub without a real tool backend. pkg/kbclient's
// ToolExecutor is the only production implementation.
type ToolExecutorInterface interface {
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)
	ListTools(ctx context.Context) ([]ToolDefinition, error)
}
