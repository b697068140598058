package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleReindex implements POST /api/projects/:id/index/reindex. It kicks
// off a pipeline run in the background and returns immediately; the
// ledger (C7) is the source of truth for progress, not this response.
func (s *Server) handleReindex(c *gin.Context) {
	if s.reindexer == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "reindex not configured"})
		return
	}

	projectID := c.Param("id")

	go func() {
		if err := s.reindexer.Reindex(context.Background(), projectID); err != nil {
			slog.Error("api: reindex failed", "project_id", projectID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, ReindexResponse{Status: "started"})
}
