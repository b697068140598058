package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// tokensPerChar approximates the 4-bytes-per-token rule of thumb used
// across the provider SDKs' own estimators; good enough for deciding
// whether to chunk, not for billing.
const tokensPerChar = 0.25

// EstimateTokens approximates the token count of s.
func EstimateTokens(s string) int {
	return int(float64(len(s))*tokensPerChar) + 1
}

// runSelective invokes the selective processor: the rendered user prompt is
// chunked on paragraph boundaries so each chunk fits the smallest
// candidate's context, each chunk is run through the full candidate
// fallback chain, and the per-chunk JSON results are combined into one
// document before schema validation.
func (g *Gateway) runSelective(ctx context.Context, candidates []Candidate, rendered RenderedPrompt) (string, error) {
	smallest := candidates[0].ContextTokens()
	for _, c := range candidates {
		if c.ContextTokens() < smallest {
			smallest = c.ContextTokens()
		}
	}
	budget := smallest - EstimateTokens(rendered.System)
	if budget < 200 {
		budget = 200
	}

	chunks := chunkOnParagraphs(rendered.User, budget)

	results := make([]any, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := g.runSequential(ctx, candidates, CompletionRequest{
			System: rendered.System,
			User:   chunk,
		})
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		_, body := splitThinkPreamble(out)
		var parsed any
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			return "", ingesterrors.NewGatewayError("llm", fmt.Errorf("chunk %d/%d: response is not valid JSON: %w", i+1, len(chunks), err))
		}
		results = append(results, parsed)
	}

	combined := combineChunkResults(results)
	raw, err := json.Marshal(combined)
	if err != nil {
		return "", fmt.Errorf("llmgateway: marshal combined chunk result: %w", err)
	}
	return string(raw), nil
}

// chunkOnParagraphs splits text into chunks at blank-line boundaries,
// greedily packing paragraphs until adding the next one would exceed
// budget tokens. A single paragraph larger than budget becomes its own
// chunk rather than being split mid-sentence.
func chunkOnParagraphs(text string, budget int) []string {
	paragraphs := strings.Split(text, "\n\n")
	if len(paragraphs) <= 1 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0
	for _, p := range paragraphs {
		pTokens := EstimateTokens(p)
		if currentTokens > 0 && currentTokens+pTokens > budget {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		currentTokens += pTokens
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// combineChunkResults merges per-chunk JSON values into one document. Array
// results are concatenated in chunk order; object results are merged key by
// key, with array-valued keys concatenated and scalar keys taking the last
// chunk's value. A single chunk's result is returned unchanged.
func combineChunkResults(results []any) any {
	if len(results) == 1 {
		return results[0]
	}

	if _, ok := results[0].([]any); ok {
		var merged []any
		for _, r := range results {
			if arr, ok := r.([]any); ok {
				merged = append(merged, arr...)
			}
		}
		return merged
	}

	merged := map[string]any{}
	for _, r := range results {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		for k, v := range obj {
			if existing, ok := merged[k].([]any); ok {
				if arr, ok := v.([]any); ok {
					merged[k] = append(existing, arr...)
					continue
				}
			}
			merged[k] = v
		}
	}
	return merged
}
