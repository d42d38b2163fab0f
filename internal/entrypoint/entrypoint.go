package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AhasnaCharumee/BookMate/internal/audit"
	"github.com/AhasnaCharumee/BookMate/internal/auth"
	"github.com/AhasnaCharumee/BookMate/internal/config"
	"github.com/AhasnaCharumee/BookMate/internal/covers"
	"github.com/AhasnaCharumee/BookMate/internal/database"
	auditrepo "github.com/AhasnaCharumee/BookMate/internal/database/audit"
	"github.com/AhasnaCharumee/BookMate/internal/database/books"
	http_controllers "github.com/AhasnaCharumee/BookMate/internal/http"
	"github.com/AhasnaCharumee/BookMate/internal/scheduler"
	"github.com/AhasnaCharumee/BookMate/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting BookMate v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Initialize cover storage and upload pipeline
	coverStore, err := covers.NewDiskStore(cfg.Covers.Dir, cfg.Covers.BaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize cover store: %v", err)
	}
	log.Printf("Cover store initialized at %s", coverStore.Root())
	uploader := covers.NewUploader(coverStore)

	// Audit trail
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	// Book repository; failed cover uploads land in the audit trail
	bookRepo := books.NewRepository(db.DB, uploader)
	bookRepo.SetAuditor(auditService)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var cleanupScheduler *scheduler.AuditCleanupScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewAttachCoverQueue(bookRepo),
			tasks.NewCleanupAuditEventsQueue(auditrepo.NewRepository(db.DB)),
		)

		// Failed cover uploads are retried through the queue
		bookRepo.SetRetrier(tasks.NewCoverRetryQueue(taskClient))

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		// Schedule periodic audit event cleanup
		cleanupScheduler = scheduler.NewAuditCleanupScheduler(taskClient, cfg.Audit)
		if err := cleanupScheduler.Start(context.Background()); err != nil {
			log.Printf("WARNING: Failed to start audit cleanup scheduler: %v", err)
		}
	}

	// Authentication
	authService := auth.NewService(db.DB, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	authMiddleware := auth.NewMiddleware(authService, sessionManager)

	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})
	defer rateLimiter.Stop()

	authHandlers := auth.NewHandlers(authService, sessionManager, rateLimiter, auditService)

	// Generate or use configured CSRF secret
	var csrfSecret []byte
	if cfg.Auth.SessionSecret != "" {
		csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			csrfSecret = []byte(cfg.Auth.SessionSecret)
		}
	} else {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret, _ = hex.DecodeString(secret)
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}

	hasUsers, _ := authService.HasUsers()
	if !hasUsers {
		log.Printf("No users found. Register via POST /api/auth/register or run the create-user command.")
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		BookRepository: bookRepo,
		Database:       db,
		AuditService:   auditService,
		AuthService:    authService,
		AuthHandlers:   authHandlers,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		CoversDir:      coverStore.Root(),
		CoversURL:      cfg.Covers.BaseURL,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
