package indexing

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder computes embedding vectors for a batch of texts against a named
// model. Stage P3's code and text lanes call this directly; the
// class-analysis lane calls it after the LLM gateway produces summary
// chunks.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// openaiEmbeddingClient narrows *openai.EmbeddingService down to the one
// call this embedder needs, the same interface-narrowing idiom
// pkg/llmgateway's candidates use for their chat/completion clients.
type openaiEmbeddingClient interface {
	New(ctx context.Context, params sdk.EmbeddingNewParams, opts ...option.RequestOption) (*sdk.CreateEmbeddingResponse, error)
}

// OpenAIEmbedder is the embeddings endpoint's backing implementation.
type OpenAIEmbedder struct {
	client openaiEmbeddingClient
}

// NewOpenAIEmbedder builds an embedder against a live OpenAI client.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmbedder{client: client.Embeddings}
}

// Embed requests embeddings for texts in one batched call and returns them
// in the same order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(model),
		Input: sdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings.new: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("openai: embeddings response length mismatch")
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	return out, nil
}
