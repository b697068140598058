package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jandamek/jervis/pkg/project"
)

func toProjectResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		ClientID:  p.ClientID,
		Slug:      p.Slug,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}
}

// handleCreateProject implements POST /api/clients/:clientId/projects.
func (s *Server) handleCreateProject(c *gin.Context) {
	clientID := c.Param("clientId")

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	p, err := s.projects.Create(clientID, req.Slug, req.Name)
	if err != nil {
		abortWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProjectResponse(p))
}

// handleListProjects implements GET /api/clients/:clientId/projects.
func (s *Server) handleListProjects(c *gin.Context) {
	clientID := c.Param("clientId")

	list := s.projects.ListByClient(clientID)
	out := make([]ProjectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProjectResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// handleGetProject implements GET /api/projects/:id.
func (s *Server) handleGetProject(c *gin.Context) {
	p, err := s.projects.Get(c.Param("id"))
	if err != nil {
		abortWithMappedError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

// handleDeleteProject implements DELETE /api/projects/:id.
func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Param("id")); err != nil {
		abortWithMappedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
