package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandamek/jervis/pkg/project"
)

func newProjectTestServer() *Server {
	return NewServer(nil, nil, nil, nil, project.New(), nil, nil)
}

func TestHandleCreateProject_RejectsInvalidSlug(t *testing.T) {
	s := newProjectTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/clients/client-1/projects", strings.NewReader(`{"slug":"Not Valid!","name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateProject_ThenGetAndList(t *testing.T) {
	s := newProjectTestServer()

	createReq := httptest.NewRequest(http.MethodPost, "/api/clients/client-1/projects", strings.NewReader(`{"slug":"svc-a","name":"Service A"}`))
	createReq.Header.Set("Content-Type", "application/json")
	createRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/clients/client-1/projects", nil)
	listRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(listRec, listReq)

	require.Equal(t, http.StatusOK, listRec.Code)
	assert.Contains(t, listRec.Body.String(), "svc-a")
}

func TestHandleDeleteProject_UnknownIDIsNotFound(t *testing.T) {
	s := newProjectTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/no-such-id", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
