package llmgateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

type compiledSchema = jsonschema.Schema

// compileSchema compiles a raw JSON schema document the same way the
// tool-registry payload validator does: unmarshal, add as an in-memory
// resource, compile.
func compileSchema(raw []byte) (*compiledSchema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// splitThinkPreamble extracts a leading "<think>...</think>" block some
// models emit before their structured answer, returning the think text
// (trimmed, tags removed) and the remainder of the response.
func splitThinkPreamble(raw string) (think, rest string) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, thinkOpenTag) {
		return "", raw
	}
	closeIdx := strings.Index(trimmed, thinkCloseTag)
	if closeIdx < 0 {
		return "", raw
	}
	think = strings.TrimSpace(trimmed[len(thinkOpenTag):closeIdx])
	rest = strings.TrimSpace(trimmed[closeIdx+len(thinkCloseTag):])
	return think, rest
}
