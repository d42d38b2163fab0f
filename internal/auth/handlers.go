package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AhasnaCharumee/BookMate/internal/entities"
)

// AuthEventLogger records authentication events for auditing.
type AuthEventLogger interface {
	LogAuth(userID, action string, err error)
}

// Handlers provides JSON endpoints for registration, login and logout.
type Handlers struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	audit          AuthEventLogger
}

// NewHandlers creates authentication handlers.
func NewHandlers(service *Service, sessionManager *SessionManager, rateLimiter *RateLimiter, audit AuthEventLogger) *Handlers {
	return &Handlers{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		audit:          audit,
	}
}

type credentialsRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type userResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func toUserResponse(user *entities.User) userResponse {
	return userResponse{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.service.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUserExists) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionManager.CreateSession(c.Request, user.UID, user.Email); err != nil {
		log.Printf("Failed to create session for new user %s: %v", user.UID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	if h.audit != nil {
		h.audit.LogAuth(user.UID, "register", nil)
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ip := c.ClientIP()
	if h.rateLimiter != nil {
		if allowed, retryAfter := h.rateLimiter.Allow(ip, req.Email); !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many login attempts, please try again later",
			})
			return
		}
	}

	user, err := h.service.Authenticate(req.Email, req.Password)
	if err != nil {
		if h.rateLimiter != nil {
			h.rateLimiter.RecordFailure(ip, req.Email)
		}
		if h.audit != nil {
			h.audit.LogAuth("", "login", err)
		}

		status := http.StatusUnauthorized
		if errors.Is(err, ErrAccountLocked) {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if h.rateLimiter != nil {
		h.rateLimiter.RecordSuccess(ip, req.Email)
	}

	if err := h.sessionManager.CreateSession(c.Request, user.UID, user.Email); err != nil {
		log.Printf("Failed to create session for user %s: %v", user.UID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	if h.audit != nil {
		h.audit.LogAuth(user.UID, "login", nil)
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout handles POST /api/auth/logout.
func (h *Handlers) Logout(c *gin.Context) {
	userID := GetUserID(c)

	if err := h.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
		return
	}

	if h.audit != nil && userID != "" {
		h.audit.LogAuth(userID, "logout", nil)
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.service.GetUserByID(GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type profileRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// UpdateProfile handles PUT /api/auth/me.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "displayName is required"})
		return
	}

	uid := GetUserID(c)
	if err := h.service.UpdateProfile(uid, req.DisplayName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	user, err := h.service.GetUserByID(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}
