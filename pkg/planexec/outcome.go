package planexec

import (
	"encoding/json"

	"github.com/jandamek/jervis/pkg/mcp"
)

// outcomeKind is the four-way classification a tool result maps to: a step
// either succeeds outright, succeeds but needs the user's input before the
// plan can continue, fails on its own, or asks the whole plan to stop.
type outcomeKind string

const (
	outcomeOk    outcomeKind = "ok"
	outcomeAsk   outcomeKind = "ask"
	outcomeError outcomeKind = "error"
	outcomeStop  outcomeKind = "stop"
)

type toolOutcome struct {
	kind   outcomeKind
	reason string
}

// envelope is the optional JSON shape a tool's Content can carry to signal
// outcomeAsk/outcomeStop explicitly. Tools that don't know about this
// convention just return plain text or an error flag, which interpretResult
// maps to outcomeOk/outcomeError.
type envelope struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// interpretResult turns a raw mcp.ToolResult into a toolOutcome. IsError
// always wins and maps to outcomeError. Otherwise, Content is checked for
// the {"outcome": "ask"|"stop", "reason": "..."} envelope; anything else
// (plain text, unrelated JSON) is outcomeOk.
func interpretResult(result *mcp.ToolResult) toolOutcome {
	if result.IsError {
		return toolOutcome{kind: outcomeError, reason: result.Content}
	}

	var env envelope
	if err := json.Unmarshal([]byte(result.Content), &env); err == nil {
		switch outcomeKind(env.Outcome) {
		case outcomeAsk:
			return toolOutcome{kind: outcomeAsk, reason: env.Reason}
		case outcomeStop:
			return toolOutcome{kind: outcomeStop, reason: env.Reason}
		}
	}

	return toolOutcome{kind: outcomeOk}
}
