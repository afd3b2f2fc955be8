// api/handlers/handlers.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/middleware"
	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// currentUserID returns the authenticated caller's id. Only reachable behind
// AuthMiddleware, so a missing key is a programming error worth the panic.
func currentUserID(c *gin.Context) int64 {
	return c.MustGet(middleware.ContextUserIDKey).(int64)
}

// parseIDParam parses the :id path segment. On failure it writes the
// INVALID_ID response and reports false.
func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidID, "Invalid resource ID")
		return 0, false
	}
	return id, true
}
