package http

import (
	"github.com/AhasnaCharumee/BookMate/internal/audit"
	"github.com/AhasnaCharumee/BookMate/internal/auth"
	"github.com/AhasnaCharumee/BookMate/internal/database"
	"github.com/AhasnaCharumee/BookMate/internal/database/books"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	BookRepository *books.Repository
	Database       *database.Database
	AuditService   *audit.Service

	// Authentication
	AuthService    *auth.Service
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// Cover image serving
	CoversDir string
	CoversURL string

	// Application info
	Version string
}
