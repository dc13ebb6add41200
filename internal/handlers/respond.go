package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/middleware"
)

// respondError maps a service error for end-user routes. Internal details
// are logged, never returned.
func respondError(c *gin.Context, err error) {
	if apierrors.KindOf(err) == apierrors.KindInternal {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	apierrors.RespondWithDomainError(c, err, false)
}

// parseIDParam reads a numeric path parameter, answering 400 when malformed.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func parseQueryID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// currentUser returns the authenticated user id or answers 401.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return "", false
	}
	return userID, true
}
