package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jandamek/jervis/pkg/kbclient"
)

// handleKBProgress implements POST /api/internal/kb-progress: an optional
// push endpoint the external knowledge-base service can call with the
// same ProgressEvent shape IngestFull streams, for deployments that
// prefer a webhook over holding the NDJSON connection open.
func (s *Server) handleKBProgress(c *gin.Context) {
	var event kbclient.ProgressEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	slog.Info("kb-progress received", "type", event.Type, "step", event.Step, "message", event.Message)

	c.JSON(http.StatusOK, KBProgressAck{Received: true})
}
