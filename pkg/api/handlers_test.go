package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(apiToken string) (*gin.Engine, *SessionStore) {
	gin.SetMode(gin.TestMode)
	sessions := NewSessionStore(time.Hour)
	server := NewServer(nil, nil, nil, nil, sessions, "uploads", apiToken)
	r := gin.New()
	server.Register(r)
	return r, sessions
}

func TestHealth(t *testing.T) {
	r, _ := testRouter("")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSessionFlow(t *testing.T) {
	r, sessions := testRouter("secret")

	// wrong token is rejected
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"token":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// correct token issues a session
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"token":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// guarded route rejects a missing session header
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/aliases/suggestions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// and accepts a live one
	token := sessions.Issue()
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/aliases/suggestions", nil)
	req.Header.Set("X-Session-Token", token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpenModeWithoutToken(t *testing.T) {
	r, _ := testRouter("")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/aliases/suggestions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
