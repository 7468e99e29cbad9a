package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), NewMiddleware(token).Handler())
	handler := func(c *gin.Context) {
		c.String(http.StatusOK, string(GetAuthType(c)))
	}
	router.GET("/health", handler)
	router.GET("/api/imports/x", handler)
	return router
}

func get(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_Disabled(t *testing.T) {
	router := newTestRouter("")

	w := get(router, "/api/imports/x", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestMiddleware_Enabled(t *testing.T) {
	router := newTestRouter("s3cret")

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"missing token", "/api/imports/x", "", http.StatusUnauthorized, ""},
		{"wrong token", "/api/imports/x", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/imports/x", "Basic s3cret", http.StatusUnauthorized, ""},
		{"valid token", "/api/imports/x", "Bearer s3cret", http.StatusOK, "bearer"},
		{"case-insensitive scheme", "/api/imports/x", "bearer s3cret", http.StatusOK, "bearer"},
		{"public path", "/health", "", http.StatusOK, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, tt.path, tt.header)
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
			if tt.code == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
