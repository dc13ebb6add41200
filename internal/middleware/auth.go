package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/auth"
	"github.com/mudralaya/mudralaya-api/internal/constants"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
)

// TokenVerifier validates identity provider tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Provisioner creates the user row for a verified identity.
type Provisioner interface {
	Provision(ctx context.Context, identity auth.Identity) error
}

// RequireAuth checks the bearer token and provisions the user on first sight.
func RequireAuth(verifier TokenVerifier, provisioner Provisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			apierrors.Unauthorized(c, "")
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			return
		}

		if provisioner != nil {
			if err := provisioner.Provision(c.Request.Context(), *identity); err != nil {
				slog.Error("user provisioning failed", "user_id", identity.UserID, "error", err)
				apierrors.InternalError(c, "")
				return
			}
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, identity.UserID)
		c.Set(constants.ContextKeyUserEmail, identity.Email)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
