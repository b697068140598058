package llmgateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkOnParagraphs_SingleParagraphIsOneChunk(t *testing.T) {
	chunks := chunkOnParagraphs("just one paragraph, nothing to split", 200)
	assert.Equal(t, []string{"just one paragraph, nothing to split"}, chunks)
}

func TestChunkOnParagraphs_PacksUntilBudgetExceeded(t *testing.T) {
	p := strings.Repeat("word ", 60)
	text := p + "\n\n" + p + "\n\n" + p
	chunks := chunkOnParagraphs(text, 80)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, EstimateTokens(c), 80+EstimateTokens(p))
	}
}

func TestCombineChunkResults_SingleChunkReturnsUnchanged(t *testing.T) {
	v := map[string]any{"a": 1}
	assert.Equal(t, v, combineChunkResults([]any{v}))
}

func TestCombineChunkResults_MergesObjectKeysLastWriterWinsForScalars(t *testing.T) {
	merged := combineChunkResults([]any{
		map[string]any{"summary": "first", "chunks": []any{"a"}},
		map[string]any{"summary": "second", "chunks": []any{"b", "c"}},
	})
	obj, ok := merged.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "second", obj["summary"])
	assert.Equal(t, []any{"a", "b", "c"}, obj["chunks"])
}

func TestEstimateTokens_GrowsWithLength(t *testing.T) {
	short := EstimateTokens("hi")
	long := EstimateTokens(strings.Repeat("word ", 100))
	assert.Less(t, short, long)
}
