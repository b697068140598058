package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMessagesClient narrows *anthropic.MessageService down to the one
// call this candidate needs, so tests can substitute a fake.
type anthropicMessagesClient interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicCandidate is the first ordered candidate model: Anthropic's
// Messages API, called directly rather than through an agent/tool loop.
type AnthropicCandidate struct {
	client        anthropicMessagesClient
	model         string
	contextTokens int
}

// NewAnthropicCandidate builds a candidate against a live Anthropic client.
func NewAnthropicCandidate(apiKey, model string, contextTokens int) *AnthropicCandidate {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCandidate{client: &client.Messages, model: model, contextTokens: contextTokens}
}

func (c *AnthropicCandidate) Name() string       { return "anthropic:" + c.model }
func (c *AnthropicCandidate) ContextTokens() int { return c.contextTokens }

// Complete sends req as a single-turn Messages.New call and returns the
// concatenated text content blocks of the reply.
func (c *AnthropicCandidate) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.User))},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.New(ctx, params)
	if err != nil {
		if isAnthropicRateLimited(err) {
			return "", fmt.Errorf("anthropic rate limited: %w", err)
		}
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", errors.New("anthropic: empty response")
	}
	return out, nil
}

func isAnthropicRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
