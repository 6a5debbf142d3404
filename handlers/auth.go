package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inksign/inksign/backend/go-services/internal/config"
	"github.com/inksign/inksign/backend/go-services/internal/sessions"
	"github.com/inksign/inksign/backend/go-services/internal/tokens"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
	"github.com/inksign/inksign/backend/go-services/pkg/metrics"
	"github.com/inksign/inksign/backend/go-services/pkg/middleware"
)

// LoginRequest is the email/password login body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// refreshRequest accepts the token under either spelling.
type refreshRequest struct {
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

func (r refreshRequest) token() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.RefreshTokenSnake
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	verifier    middleware.Verifier
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, v middleware.Verifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, verifier: v}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func (h *AuthHandler) accessTTL() time.Duration {
	if h.cfg.JWT.AccessTokenTTL > 0 {
		return h.cfg.JWT.AccessTokenTTL
	}
	return 15 * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	if h.cfg.JWT.RefreshTokenTTL > 0 {
		return h.cfg.JWT.RefreshTokenTTL
	}
	return sessions.DefaultTTL
}

// Login checks email and password and issues an access token plus a refresh
// session. Unknown emails and wrong passwords get the same answer.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "email and password are required"})
		return
	}
	ctx := c.Request.Context()
	u, err := h.usersSvc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			logger.Warnw("login failed", "email", strings.ToLower(strings.TrimSpace(req.Email)))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "invalid email or password"})
			return
		}
		logger.Errorf("login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal error"})
		return
	}

	rft, err := h.sessionsSvc.CreateSession(ctx, u.ID, h.refreshTTL())
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, u, h.accessTTL())
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to create access token"})
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	logger.Infow("login", "userId", u.ID)
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"user":         u.Public(),
		"expiresIn":    int(h.accessTTL().Seconds()),
	})
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token. The presented refresh token is spent.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.token() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "refreshToken is required"})
		return
	}
	ctx := c.Request.Context()
	sess, next, err := h.sessionsSvc.Rotate(ctx, req.token(), h.refreshTTL())
	if err != nil {
		logger.Errorf("refresh rotation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid refresh token"})
		return
	}
	u, err := h.usersSvc.GetByID(ctx, sess.UserID)
	if err != nil {
		_ = h.sessionsSvc.DeleteRefresh(ctx, next)
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "user lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, u, h.accessTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": next, "expiresIn": int(h.accessTTL().Seconds())})
}

// Logout invalidates the refresh token and blacklists the presented access
// token for the rest of its lifetime when it verifies.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.token() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "refreshToken is required"})
		return
	}
	ctx := c.Request.Context()
	if at, ok := middleware.BearerToken(c.GetHeader("Authorization")); ok && h.verifier != nil {
		if tok, err := h.verifier.Verify(ctx, at); err == nil {
			if exp, err := tokens.Expiry(tok); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := sessions.BlacklistAccessToken(ctx, at, ttl); err != nil {
						logger.Errorf("blacklist access token: %v", err)
						c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}

	if err := h.sessionsSvc.DeleteRefresh(ctx, req.token()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated principal. Mount behind AuthMiddleware and
// PrincipalMiddleware.
func (h *AuthHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "no principal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}
