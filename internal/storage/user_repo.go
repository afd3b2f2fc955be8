// internal/storage/user_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// Specific errors for user operations
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already registered")
	ErrUsernameExists = errors.New("username already taken")
)

const userColumns = `id, username, email, password_hash, avatar_url, settings, deleted_at, created_at, updated_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.AvatarURL, &user.Settings, &user.DeletedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error scanning user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user and returns the stored row.
// Email must already be lower-cased by the caller.
func CreateUser(ctx context.Context, db *sql.DB, username, email, passwordHash string) (*domain.User, error) {
	sqlStatement := `INSERT INTO users (username, email, password_hash, settings) VALUES (?, ?, ?, '{}')`
	result, err := db.ExecContext(ctx, sqlStatement, username, email, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqliteErr.Error(), "users.email") {
				return nil, ErrEmailExists
			}
			if strings.Contains(sqliteErr.Error(), "users.username") {
				return nil, ErrUsernameExists
			}
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", email, err)
		return nil, fmt.Errorf("database error during user creation: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user ID after creation: %w", err)
	}
	return FindUserByID(ctx, db, userID)
}

// FindUserByEmail retrieves a user by lower-cased email. Soft-deleted rows are
// returned too; callers decide whether deletion matters (login treats it as
// invalid credentials, the auth middleware as a missing user).
func FindUserByEmail(ctx context.Context, db *sql.DB, email string) (*domain.User, error) {
	sqlStatement := `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	return scanUser(db.QueryRowContext(ctx, sqlStatement, email))
}

// FindUserByID retrieves a user by primary key, including soft-deleted rows.
func FindUserByID(ctx context.Context, db *sql.DB, id int64) (*domain.User, error) {
	sqlStatement := `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	return scanUser(db.QueryRowContext(ctx, sqlStatement, id))
}

// FindConflictField reports which registration field collides with an existing
// user: "email", "username", or "" when both are free.
func FindConflictField(ctx context.Context, db *sql.DB, email, username string) (string, error) {
	var existingEmail, existingUsername string
	sqlStatement := `SELECT email, username FROM users WHERE email = ? OR username = ? LIMIT 1`
	err := db.QueryRowContext(ctx, sqlStatement, email, username).Scan(&existingEmail, &existingUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("database error checking user existence: %w", err)
	}
	if existingEmail == email {
		return "email", nil
	}
	return "username", nil
}

// UsernameTakenByOther reports whether a username is used by any user other
// than excludeID.
func UsernameTakenByOther(ctx context.Context, db *sql.DB, username string, excludeID int64) (bool, error) {
	var count int
	sqlStatement := `SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`
	if err := db.QueryRowContext(ctx, sqlStatement, username, excludeID).Scan(&count); err != nil {
		return false, fmt.Errorf("database error checking username: %w", err)
	}
	return count > 0, nil
}

// UpdateUserProfile applies a partial profile update; nil fields are untouched.
func UpdateUserProfile(ctx context.Context, db *sql.DB, userID int64, username, avatarURL, settings *string) (*domain.User, error) {
	var setClauses []string
	var values []any

	if username != nil {
		setClauses = append(setClauses, "username = ?")
		values = append(values, *username)
	}
	if avatarURL != nil {
		setClauses = append(setClauses, "avatar_url = ?")
		values = append(values, *avatarURL)
	}
	if settings != nil {
		setClauses = append(setClauses, "settings = ?")
		values = append(values, *settings)
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
		values = append(values, userID)
		sqlStatement := fmt.Sprintf(`UPDATE users SET %s WHERE id = ?`, strings.Join(setClauses, ", "))
		if _, err := db.ExecContext(ctx, sqlStatement, values...); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return nil, ErrUsernameExists
			}
			customLog.Warnf("Storage: Failed to update profile for user %d: %v", userID, err)
			return nil, fmt.Errorf("database error updating profile: %w", err)
		}
	}

	return FindUserByID(ctx, db, userID)
}
