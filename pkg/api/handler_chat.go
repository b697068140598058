package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jandamek/jervis/ent/plan"
)

// handleChatCompletion implements POST /chat/completions: it takes the
// last user message as the question, scopes it to the project named by
// model, and drives it through intake (CreatePlan), execution
// (RunContext), and finalization (Finalize) before returning the plan's
// final answer as the sole choice.
func (s *Server) handleChatCompletion(c *gin.Context) {
	if s.plans == nil || s.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "chat completions not configured"})
		return
	}

	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	question := lastUserMessage(req.Messages)
	if question == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "no user message in request"})
		return
	}

	ctx := c.Request.Context()
	contextID := newRequestID()

	planID, err := s.plans.CreatePlan(ctx, s.gateway, contextID, question, "English")
	if err != nil {
		abortWithMappedError(c, err)
		return
	}

	if err := s.plans.RunContext(ctx, contextID); err != nil {
		abortWithMappedError(c, err)
		return
	}

	if err := s.plans.Finalize(ctx, s.gateway); err != nil {
		abortWithMappedError(c, err)
		return
	}

	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		abortWithMappedError(c, err)
		return
	}

	answer := ""
	if p.FinalAnswer != nil {
		answer = *p.FinalAnswer
	} else if p.Status != plan.StatusFINALIZED {
		answer = "the request is still being processed"
	}

	c.JSON(http.StatusOK, ChatCompletionResponse{
		Model: req.Model,
		Choices: []ChatCompletionChoice{
			{Index: 0, Message: ChatMessage{Role: "assistant", Content: answer}},
		},
	})
}

// lastUserMessage returns the content of the last message with role
// "user", or "" if there is none.
func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
