package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID = "auth_user_id"
	ContextKeyEmail  = "auth_email"
)

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	publicPaths := map[string]bool{
		"/health":            true,
		"/ping":              true,
		"/api/auth/login":    true,
		"/api/auth/register": true,
	}

	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
// Unauthenticated requests to protected paths receive a 401 JSON response.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		if user := m.trySessionAuth(c); user != nil {
			c.Set(ContextKeyUserID, user.UID)
			c.Set(ContextKeyEmail, user.Email)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
	}
}

// trySessionAuth attempts to authenticate using the session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) *sessionUser {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == "" {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}

	return &sessionUser{UID: user.UID, Email: user.Email}
}

type sessionUser struct {
	UID   string
	Email string
}

// isPublicPath checks if a path should be accessible without authentication.
func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}

	// Served cover images carry unguessable object keys
	if strings.HasPrefix(path, "/covers/") {
		return true
	}

	return false
}

// GetUserID retrieves the authenticated user's id from the context.
// Returns "" if not authenticated.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

// GetEmail retrieves the authenticated user's email from the context.
func GetEmail(c *gin.Context) string {
	if e, exists := c.Get(ContextKeyEmail); exists {
		if email, ok := e.(string); ok {
			return email
		}
	}
	return ""
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != ""
}
