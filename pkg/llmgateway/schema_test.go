package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSchema_ValidatesInstance(t *testing.T) {
	schema, err := compileSchema([]byte(answerSchema))
	require.NoError(t, err)

	assert.NoError(t, schema.Validate(map[string]any{"answer": "hi"}))
	assert.Error(t, schema.Validate(map[string]any{"wrong": "shape"}))
}

func TestCompileSchema_RejectsMalformedSchema(t *testing.T) {
	_, err := compileSchema([]byte(`not json`))
	assert.Error(t, err)
}

func TestSplitThinkPreamble_ExtractsTaggedBlock(t *testing.T) {
	think, rest := splitThinkPreamble("<think>reasoning</think>\n{\"answer\":\"hi\"}")
	assert.Equal(t, "reasoning", think)
	assert.Equal(t, `{"answer":"hi"}`, rest)
}

func TestSplitThinkPreamble_NoPreambleReturnsRawUnchanged(t *testing.T) {
	think, rest := splitThinkPreamble(`{"answer":"hi"}`)
	assert.Empty(t, think)
	assert.Equal(t, `{"answer":"hi"}`, rest)
}

func TestSplitThinkPreamble_UnterminatedTagReturnsRawUnchanged(t *testing.T) {
	raw := "<think>never closes"
	think, rest := splitThinkPreamble(raw)
	assert.Empty(t, think)
	assert.Equal(t, raw, rest)
}
