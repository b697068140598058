package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// bedrockConverseClient narrows *bedrockruntime.Client down to the one call
// this candidate needs.
type bedrockConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockCandidate is the third ordered candidate model: a Bedrock-hosted
// model reached through the Converse API, selected for air-gapped
// deployments that cannot reach the public Anthropic or OpenAI endpoints.
type BedrockCandidate struct {
	client        bedrockConverseClient
	modelID       string
	contextTokens int
}

// NewBedrockCandidate builds a candidate against a live Bedrock runtime
// client configured for the given region.
func NewBedrockCandidate(client *bedrockruntime.Client, modelID string, contextTokens int) *BedrockCandidate {
	return &BedrockCandidate{client: client, modelID: modelID, contextTokens: contextTokens}
}

func (c *BedrockCandidate) Name() string       { return "bedrock:" + c.modelID }
func (c *BedrockCandidate) ContextTokens() int { return c.contextTokens }

// Complete sends req as a single-turn Converse call and returns the
// assistant message's text content.
func (c *BedrockCandidate) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.User}},
			},
		},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxTokens))}
	}

	out, err := c.client.Converse(ctx, input)
	if err != nil {
		if isBedrockThrottled(err) {
			return "", fmt.Errorf("bedrock throttled: %w", err)
		}
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock: unexpected output shape")
	}
	var text string
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	if text == "" {
		return "", errors.New("bedrock: empty response")
	}
	return text, nil
}

func isBedrockThrottled(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") || strings.Contains(msg, "too many requests")
}
