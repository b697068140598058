package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiChatClient narrows *openai.ChatCompletionService down to the one
// call this candidate needs.
type openaiChatClient interface {
	New(ctx context.Context, params sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// OpenAICandidate is the second ordered candidate model, used for prompt
// families where it outperforms the Anthropic candidate or as its fallback.
type OpenAICandidate struct {
	client        openaiChatClient
	model         string
	contextTokens int
}

// NewOpenAICandidate builds a candidate against a live OpenAI client.
func NewOpenAICandidate(apiKey, model string, contextTokens int) *OpenAICandidate {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &OpenAICandidate{client: client.Chat.Completions, model: model, contextTokens: contextTokens}
}

func (c *OpenAICandidate) Name() string       { return "openai:" + c.model }
func (c *OpenAICandidate) ContextTokens() int { return c.contextTokens }

// Complete sends req as a single-turn chat completion and returns the first
// choice's message content.
func (c *OpenAICandidate) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	messages = append(messages, sdk.UserMessage(req.User))

	params := sdk.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}

	resp, err := c.client.New(ctx, params)
	if err != nil {
		if isOpenAIRateLimited(err) {
			return "", fmt.Errorf("openai rate limited: %w", err)
		}
		return "", fmt.Errorf("openai chat.completions.new: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("openai: empty response")
	}
	return content, nil
}

func isOpenAIRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
