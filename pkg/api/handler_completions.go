package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jandamek/jervis/pkg/llmgateway"
)

const completionPromptType = "completion"

type completionResult struct {
	Text string `json:"text"`
}

var completionSchema = []byte(`{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"}
	}
}`)

// handleCompletion implements POST /completions: a thin passthrough onto
// the LLM gateway's "completion" prompt template.
func (s *Server) handleCompletion(c *gin.Context) {
	if s.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "completions not configured"})
		return
	}

	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	resp, err := llmgateway.CallLLM[completionResult](c.Request.Context(), s.gateway, completionPromptType, completionSchema, true,
		map[string]any{"prompt": req.Prompt}, "English", false)
	if err != nil {
		abortWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, CompletionResponse{Model: req.Model, Text: resp.Value.Text})
}

// handleEmbeddings implements POST /embeddings, forwarding to the
// configured embedder.
func (s *Server) handleEmbeddings(c *gin.Context) {
	if s.embedder == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "embeddings not configured"})
		return
	}

	var req EmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	vectors, err := s.embedder.Embed(c.Request.Context(), req.Model, req.Input)
	if err != nil {
		abortWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, EmbeddingsResponse{Model: req.Model, Data: vectors})
}
