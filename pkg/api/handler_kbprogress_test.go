package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleKBProgress_AcknowledgesValidEvent(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, nil, nil, nil)

	body := strings.NewReader(`{"type":"progress","step":"parse","message":"parsing files"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/internal/kb-progress", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
}

func TestHandleKBProgress_RejectsMalformedBody(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/internal/kb-progress", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
