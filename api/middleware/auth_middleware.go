// api/middleware/auth_middleware.go
package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/auth"
	"github.com/promptvault/promptvault-backend/internal/logger"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// Context keys the handlers read after authentication.
const (
	ContextUserIDKey = "userId"
	ContextUserKey   = "currentUser"
)

// bearerToken extracts the credential from an Authorization header, or ""
// when the header is absent or not a Bearer scheme.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// resolveUser validates the token and loads the referenced account.
// Soft-deleted users authenticate as if they no longer exist.
func resolveUser(c *gin.Context, db *sql.DB, cfg *config.Config, tokenString string) (*models.UserResponse, int64, error) {
	userID, err := auth.ValidateJWT(tokenString, cfg.JWTSecret)
	if err != nil {
		return nil, 0, err
	}

	user, err := storage.FindUserByID(c.Request.Context(), db, userID)
	if err != nil {
		return nil, 0, err
	}
	if user.DeletedAt != nil {
		return nil, 0, storage.ErrUserNotFound
	}

	resp := models.NewUserResponse(user)
	return &resp, user.ID, nil
}

// AuthMiddleware guards protected routes: it requires a valid bearer token
// referencing a live account, then attaches the resolved user to the context.
func AuthMiddleware(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			models.RespondError(c, http.StatusUnauthorized, models.CodeNoToken, "Access token missing")
			return
		}

		user, userID, err := resolveUser(c, db, cfg, tokenString)
		if err != nil {
			customLog.Printf("AuthMiddleware: authentication failed: %v", err)
			if errors.Is(err, storage.ErrUserNotFound) {
				models.RespondError(c, http.StatusUnauthorized, models.CodeUserNotFound, "User does not exist or has been deleted")
				return
			}
			models.RespondError(c, http.StatusUnauthorized, models.CodeInvalidToken, "Access token invalid or expired")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserKey, *user)
		c.Next()
	}
}

// OptionalAuthMiddleware decodes a bearer token when present but never
// rejects the request; anonymous callers simply proceed without a user.
func OptionalAuthMiddleware(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if user, userID, err := resolveUser(c, db, cfg, tokenString); err == nil {
				c.Set(ContextUserIDKey, userID)
				c.Set(ContextUserKey, *user)
			} else {
				customLog.Printf("OptionalAuth: ignoring invalid token: %v", err)
			}
		}
		c.Next()
	}
}
