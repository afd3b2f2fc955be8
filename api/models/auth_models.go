// api/models/auth_models.go
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// --- Auth Request/Response Structs ---

// RegisterRequest defines the structure for the registration request body.
// Password length is checked in the handler so a short password maps to
// WEAK_PASSWORD rather than a generic binding failure.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the structure for the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries partial profile updates; nil means "leave unchanged".
type UpdateProfileRequest struct {
	Username  *string         `json:"username"`
	AvatarURL *string         `json:"avatarUrl"`
	Settings  *map[string]any `json:"settings"`
}

// UserResponse is the public view of a user; never includes the password hash.
type UserResponse struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	AvatarURL *string        `json:"avatarUrl"`
	Settings  map[string]any `json:"settings"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewUserResponse shapes a domain user for the wire.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Settings:  UnmarshalObject(u.Settings),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AuthResponse is the data payload for register/login.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// --- JWT Claims ---

// CustomClaims includes standard claims and our custom userId claim for JWT
type CustomClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}
