package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/constants"
	"github.com/mudralaya/mudralaya-api/internal/dto"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/ratelimit"
	"github.com/mudralaya/mudralaya-api/internal/services"
)

// AuthHandler coordinates the current-user endpoint and the admin session.
type AuthHandler struct {
	users   *services.UserService
	gate    services.AdminGate
	limiter ratelimit.Limiter
}

// NewAuthHandler creates a new AuthHandler. A nil limiter disables login
// throttling.
func NewAuthHandler(users *services.UserService, gate services.AdminGate, limiter ratelimit.Limiter) *AuthHandler {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &AuthHandler{users: users, gate: gate, limiter: limiter}
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// AdminLogin checks the admin credentials and initializes the admin session.
// The credential is also returned for clients that send it as a header.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	allowed, retryAfter, err := h.limiter.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		// Redis being down must not lock admins out.
		slog.Warn("admin login rate limit unavailable", "error", err)
	} else if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		apierrors.TooManyRequests(c, "Too many login attempts")
		return
	}

	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	token, err := h.gate.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyAdmin, token)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// AdminLogout removes the admin session.
func (h *AuthHandler) AdminLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
