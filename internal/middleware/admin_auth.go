package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/constants"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/services"
)

// RequireAdmin authorizes the admin credential from the X-Admin-Password
// header or the admin session, and puts the principal on the request context.
func RequireAdmin(gate services.AdminGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := AdminCredential(c)
		if credential == "" {
			apierrors.Unauthorized(c, "Admin credential required")
			return
		}

		principal, err := gate.Authorize(c.Request.Context(), credential)
		if err != nil {
			apierrors.RespondWithDomainError(c, err, false)
			return
		}

		c.Request = c.Request.WithContext(services.WithAdmin(c.Request.Context(), principal))
		c.Next()
	}
}

// AdminCredential returns the credential presented by the caller, if any.
func AdminCredential(c *gin.Context) string {
	if header := c.GetHeader(constants.AdminHeader); header != "" {
		return header
	}

	// Session middleware is optional
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	if token, ok := sessions.Default(c).Get(constants.SessionKeyAdmin).(string); ok {
		return token
	}
	return ""
}
