package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AhasnaCharumee/BookMate/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	// Health checks
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	// Serve uploaded cover images. An absolute base URL means a CDN or
	// external host serves the files; only a server-relative path gets a
	// static route, since gin rejects ":" inside a static route pattern.
	if cfg.CoversDir != "" {
		coversURL := cfg.CoversURL
		if coversURL == "" || !strings.HasPrefix(coversURL, "/") {
			coversURL = "/covers"
		}
		router.Static(coversURL, cfg.CoversDir)
	}

	// Auth endpoints
	if cfg.AuthHandlers != nil {
		authGroup := router.Group("/api/auth")
		authGroup.POST("/register", cfg.AuthHandlers.Register)
		authGroup.POST("/login", cfg.AuthHandlers.Login)
		authGroup.POST("/logout", cfg.AuthHandlers.Logout)
		authGroup.GET("/me", cfg.AuthHandlers.Me)
		authGroup.PUT("/me", cfg.AuthHandlers.UpdateProfile)
	}

	// Book collection endpoints
	booksController := NewBooksController(cfg.BookRepository, cfg.AuditService)
	booksGroup := router.Group("/api/books")
	booksGroup.GET("", booksController.List)
	booksGroup.GET("/stats", booksController.Stats)
	booksGroup.GET("/:id", booksController.Get)
	booksGroup.POST("", booksController.Create)
	booksGroup.PATCH("/:id", booksController.Update)
	booksGroup.DELETE("/:id", booksController.Delete)

	// Audit trail
	if cfg.AuditService != nil {
		auditController := NewAuditController(cfg.AuditService)
		router.GET("/api/audit", auditController.GetAuditEvents)
	}

	return router
}
