package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeVector_RoundTripsLittleEndianFloat32(t *testing.T) {
	v := []float32{1.5, -2.25, 0}
	encoded := encodeVector(v)
	assert.Len(t, encoded, 12)
}

func TestBuildTagQuery_EmptyFilterMatchesEverything(t *testing.T) {
	assert.Equal(t, "*", buildTagQuery(nil))
}

func TestBuildTagQuery_RendersExactMatchClauses(t *testing.T) {
	q := buildTagQuery(map[string]string{"project_id": "proj-1"})
	assert.Equal(t, "@project_id:{proj\\-1}", q)
}

func TestCollectionKey_NamesIncludeModelAndDimension(t *testing.T) {
	k := collectionKey{modelName: "text-embedding-3", dimension: 1536}
	assert.Equal(t, "jervis_text-embedding-3_dim1536_idx", k.indexName("jervis"))
	assert.Equal(t, "jervis:text-embedding-3:dim1536:", k.keyPrefix("jervis"))
}

func TestSanitize_ReplacesColonsAndSpaces(t *testing.T) {
	assert.Equal(t, "model_a_b", sanitize("model:a b"))
}

func TestParseSearchIDs_NoContentReply(t *testing.T) {
	raw := []any{int64(2), "jervis:m:dim3:doc-1", "jervis:m:dim3:doc-2"}
	ids := parseSearchIDs(raw)
	assert.Equal(t, []string{"jervis:m:dim3:doc-1", "jervis:m:dim3:doc-2"}, ids)
}

func TestParseSearchHits_ExtractsScoreAndPayload(t *testing.T) {
	raw := []any{
		int64(1),
		"jervis:m:dim3:doc-1",
		[]any{"score", "0.87", "project_id", "proj-1", "meta_symbol", "Foo"},
	}
	hits := parseSearchHits(raw)
	assert.Len(t, hits, 1)
	assert.Equal(t, "jervis:m:dim3:doc-1", hits[0].ID)
	assert.InDelta(t, 0.87, hits[0].Score, 0.0001)
	assert.Equal(t, "proj-1", hits[0].Payload["project_id"])
	assert.Equal(t, "Foo", hits[0].Payload["meta_symbol"])
	_, hasScoreInPayload := hits[0].Payload["score"]
	assert.False(t, hasScoreInPayload)
}
