// api/handlers/auth_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/middleware"
	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/auth"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(db *sql.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Register binding error: %v", err)
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Username, email and password are all required")
		return
	}

	if len(req.Password) < 6 {
		models.RespondError(c, http.StatusBadRequest, models.CodeWeakPassword, "Password must be at least 6 characters")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	conflict, err := storage.FindConflictField(c.Request.Context(), h.DB, email, username)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if conflict == "email" {
		models.RespondError(c, http.StatusConflict, models.CodeUserExists, "Email is already registered")
		return
	}
	if conflict == "username" {
		models.RespondError(c, http.StatusConflict, models.CodeUserExists, "Username is already taken")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := storage.CreateUser(c.Request.Context(), h.DB, username, email, hashedPassword)
	if err != nil {
		// Race between the pre-check and the insert resolves here
		if errors.Is(err, storage.ErrEmailExists) {
			models.RespondError(c, http.StatusConflict, models.CodeUserExists, "Email is already registered")
			return
		}
		if errors.Is(err, storage.ErrUsernameExists) {
			models.RespondError(c, http.StatusConflict, models.CodeUserExists, "Username is already taken")
			return
		}
		_ = c.Error(err)
		return
	}

	tokenString, err := auth.GenerateJWT(user.ID, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Successfully registered user %s", email)
	models.RespondCreated(c, models.AuthResponse{User: models.NewUserResponse(user), Token: tokenString}, "Registration successful")
}

// Login handles user login requests and issues a JWT on success.
// The failure message never distinguishes a missing account, a deleted
// account and a wrong password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Login binding error: %v", err)
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Email and password are both required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := storage.FindUserByEmail(c.Request.Context(), h.DB, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			models.RespondError(c, http.StatusUnauthorized, models.CodeInvalidCredentials, "Invalid email or password")
			return
		}
		_ = c.Error(err)
		return
	}
	if user.DeletedAt != nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		customLog.Warnf("Login attempt failed for email %s", email)
		models.RespondError(c, http.StatusUnauthorized, models.CodeInvalidCredentials, "Invalid email or password")
		return
	}

	tokenString, err := auth.GenerateJWT(user.ID, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	models.RespondOK(c, models.AuthResponse{User: models.NewUserResponse(user), Token: tokenString}, "Login successful")
}

// GetProfile returns the caller's public profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := storage.FindUserByID(c.Request.Context(), h.DB, currentUserID(c))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodeUserNotFound, "User does not exist")
			return
		}
		_ = c.Error(err)
		return
	}
	if user.DeletedAt != nil {
		models.RespondError(c, http.StatusNotFound, models.CodeUserNotFound, "User does not exist")
		return
	}
	models.RespondOK(c, models.NewUserResponse(user), "")
}

// UpdateProfile applies a partial profile update (username, avatar, settings).
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := currentUserID(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidData, "Invalid profile data")
		return
	}

	if req.Username != nil {
		taken, err := storage.UsernameTakenByOther(c.Request.Context(), h.DB, strings.TrimSpace(*req.Username), userID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if taken {
			models.RespondError(c, http.StatusConflict, models.CodeUsernameTaken, "Username is already taken")
			return
		}
	}

	var settings *string
	if req.Settings != nil {
		serialized := models.MarshalObject(*req.Settings)
		settings = &serialized
	}

	user, err := storage.UpdateUserProfile(c.Request.Context(), h.DB, userID, req.Username, req.AvatarURL, settings)
	if err != nil {
		if errors.Is(err, storage.ErrUsernameExists) {
			models.RespondError(c, http.StatusConflict, models.CodeUsernameTaken, "Username is already taken")
			return
		}
		_ = c.Error(err)
		return
	}

	models.RespondOK(c, models.NewUserResponse(user), "Profile updated")
}

// Verify confirms token validity for the client; the heavy lifting already
// happened in AuthMiddleware.
func (h *AuthHandler) Verify(c *gin.Context) {
	user := c.MustGet(middleware.ContextUserKey).(models.UserResponse)
	models.RespondOK(c, gin.H{"user": user}, "Token verified")
}

// Logout acknowledges the request; tokens are stateless so the client simply
// discards its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	models.RespondOK(c, nil, "Logged out successfully")
}
