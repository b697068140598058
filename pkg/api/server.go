// Package api is the inbound HTTP surface: an OpenAI-compatible completions
// facade in front of the LLM gateway and embedder, a chat/completions
// endpoint that drives the plan executor end to end, client/project CRUD,
// a reindex trigger for the indexing pipeline, and a push endpoint the
// external knowledge-base service can call with progress events. There is
// no end-user web UI here — callers are other services and API clients.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jandamek/jervis/pkg/config"
	"github.com/jandamek/jervis/pkg/database"
	"github.com/jandamek/jervis/pkg/indexing"
	"github.com/jandamek/jervis/pkg/llmgateway"
	"github.com/jandamek/jervis/pkg/planexec"
	"github.com/jandamek/jervis/pkg/project"
)

// Reindexer starts an indexing pipeline run for a project in the
// background. The composition root supplies the concrete adapter over
// pkg/indexing.Pipeline; the handler only needs to kick it off and report
// whether it started.
type Reindexer interface {
	Reindex(ctx context.Context, projectID string) error
}

// Version is stamped at build time via -ldflags; left as a default for
// local runs.
var Version = "dev"

// Server wires the gin engine to every collaborator the handlers call
// into. It owns the *http.Server so Start/Shutdown can be driven from
// cmd/jervis the same way the teacher's composition root drove its echo
// server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg       *config.Config
	db        *database.Client
	gateway   *llmgateway.Gateway
	embedder  indexing.Embedder
	projects  *project.Store
	plans     *planexec.Executor
	reindexer Reindexer
}

// NewServer builds a Server and registers every route. Any of embedder,
// plans, or reindexer may be nil in a deployment that doesn't wire that
// concern; the corresponding handler then reports 503 rather than
// panicking.
func NewServer(cfg *config.Config, db *database.Client, gateway *llmgateway.Gateway, embedder indexing.Embedder, projects *project.Store, plans *planexec.Executor, reindexer Reindexer) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), securityHeaders())

	s := &Server{
		engine:    engine,
		cfg:       cfg,
		db:        db,
		gateway:   gateway,
		embedder:  embedder,
		projects:  projects,
		plans:     plans,
		reindexer: reindexer,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	s.engine.POST("/completions", s.handleCompletion)
	s.engine.POST("/chat/completions", s.handleChatCompletion)
	s.engine.POST("/embeddings", s.handleEmbeddings)

	s.engine.POST("/api/projects/:id/index/reindex", s.handleReindex)

	clients := s.engine.Group("/api/clients/:clientId/projects")
	clients.POST("", s.handleCreateProject)
	clients.GET("", s.handleListProjects)
	s.engine.GET("/api/projects/:id", s.handleGetProject)
	s.engine.DELETE("/api/projects/:id", s.handleDeleteProject)

	s.engine.POST("/api/internal/kb-progress", s.handleKBProgress)
}

// healthHandler reports process, configuration, and database health,
// mirroring the teacher's combined liveness/readiness endpoint.
func (s *Server) healthHandler(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Version: Version}

	if s.cfg != nil {
		stats := s.cfg.Stats()
		slog.Debug("health check", "connections", stats.Connections, "mcp_servers", stats.MCPServers, "llm_providers", stats.LLMProviders)
	}

	if s.db != nil {
		dbStatus, err := database.Health(c.Request.Context(), s.db.DB())
		if err != nil {
			resp.Status = "degraded"
			resp.Database = "unhealthy"
			c.JSON(http.StatusOK, resp)
			return
		}
		resp.Database = dbStatus.Status
	}

	c.JSON(http.StatusOK, resp)
}

// Engine exposes the underlying gin engine, mainly for tests that want to
// call ServeHTTP directly without going through Start.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the HTTP server on addr until the process is signaled to
// stop; call Shutdown from elsewhere to stop it gracefully.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests to drain within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// newRequestID is used by handlers that need a fresh opaque identifier
// (e.g. a chat turn's context id) when the caller didn't supply one.
func newRequestID() string {
	return uuid.NewString()
}
