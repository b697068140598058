package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jandamek/jervis/pkg/ingesterrors"
	"github.com/jandamek/jervis/pkg/project"
)

// errorResponse is the JSON body for every non-2xx response this package
// returns.
type errorResponse struct {
	Error string `json:"error"`
}

// abortWithMappedError classifies err against the shared ingestion error
// taxonomy and the project store's sentinel errors, writes the matching
// HTTP status, and aborts the gin context. Anything unrecognized maps to
// 500 and is logged, mirroring the teacher's "unexpected service error"
// fallback.
func abortWithMappedError(c *gin.Context, err error) {
	if ingesterrors.IsCancellation(err) {
		c.AbortWithStatusJSON(http.StatusRequestTimeout, errorResponse{Error: "request cancelled"})
		return
	}
	if authErr, ok := ingesterrors.AsAuthError(err); ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
		return
	}
	if dataErr, ok := ingesterrors.AsDataError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: dataErr.Error()})
		return
	}
	if toolErr, ok := ingesterrors.AsToolError(err); ok {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Error: toolErr.Error()})
		return
	}
	if gatewayErr, ok := ingesterrors.AsGatewayError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadGateway, errorResponse{Error: gatewayErr.Error()})
		return
	}
	if _, ok := ingesterrors.AsTransientError(err); ok {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable, retry later"})
		return
	}

	switch {
	case errors.Is(err, project.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "project not found"})
	case errors.Is(err, project.ErrInvalidSlug), errors.Is(err, project.ErrSlugTaken):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("api: unexpected handler error", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
