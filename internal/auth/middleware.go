package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set for authenticated requests.
const (
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how a request was authenticated.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
)

// Middleware checks the bearer token of API requests.
type Middleware struct {
	token       string
	publicPaths map[string]bool
}

// NewMiddleware returns a middleware requiring token, which may be given as
// a bcrypt hash. An empty token disables authentication.
func NewMiddleware(token string) *Middleware {
	return &Middleware{
		token: token,
		publicPaths: map[string]bool{
			"/health": true,
			"/ping":   true,
		},
	}
}

// Enabled reports whether requests must carry the token.
func (m *Middleware) Enabled() bool {
	return m.token != ""
}

// Handler returns the gin handler.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() || m.publicPaths[c.Request.URL.Path] {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}
		if !m.validBearer(c.GetHeader("Authorization")) {
			c.Header("WWW-Authenticate", `Bearer realm="copycat"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Set(ContextKeyAuthType, AuthTypeBearer)
		c.Next()
	}
}

func (m *Middleware) validBearer(header string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return false
	}
	return CheckToken(strings.TrimSpace(parts[1]), m.token)
}

// GetAuthType returns how the request was authenticated.
func GetAuthType(c *gin.Context) AuthType {
	if v, ok := c.Get(ContextKeyAuthType); ok {
		if t, ok := v.(AuthType); ok {
			return t
		}
	}
	return AuthTypeNone
}
