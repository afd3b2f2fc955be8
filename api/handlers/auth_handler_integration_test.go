// api/handlers/auth_handler_integration_test.go
package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault-backend/api"
	"github.com/promptvault/promptvault-backend/api/handlers"
	"github.com/promptvault/promptvault-backend/api/middleware"
	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/auth"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

const testJWTSecret = "test_secret_key_for_integration_tests_1234567890"

// testDBSetup creates a temporary SQLite DB for testing and returns the DB pool and cleanup func.
func testDBSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tempDir := t.TempDir()

	testCfg := &config.Config{
		ServerPort:    ":0",
		JWTSecret:     testJWTSecret,
		JWTExpiration: time.Minute * 5,
		DatabaseDir:   tempDir,
		DatabaseFile:  "test_promptvault.db",
		ClientURL:     "http://localhost:3000",
	}

	db, err := storage.ConnectDB(testCfg) // Creates tables
	if err != nil {
		t.Fatalf("Failed to connect to test database in '%s': %v", tempDir, err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	}

	return db, testCfg, cleanup
}

// setupTestServer creates a test server instance with a test DB.
func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cfg, dbCleanup := testDBSetup(t)
	router := api.SetupRouter(db, cfg)
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		dbCleanup()
	}

	return server, db, cleanup
}

// envelope mirrors the response wrapper for decoding in tests. Data stays raw
// so each test can decode it into the shape it expects.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
	Meta    *struct {
		Pagination *models.Pagination `json:"pagination"`
	} `json:"meta"`
}

// doRequest issues an HTTP request against the test server, optionally with a
// bearer token, and decodes the envelope.
func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env), "Failed to decode response envelope")
	return res.StatusCode, env
}

// registerTestUser registers a fresh user and returns its auth token.
func registerTestUser(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()

	body := models.RegisterRequest{
		Username: username,
		Email:    username + "@integration.com",
		Password: "StrongPassword123!",
	}
	status, env := doRequest(t, server, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, status, "registration should succeed")

	var data models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

// TestAuthEndpoints performs integration tests on registration, login and profile.
func TestAuthEndpoints(t *testing.T) {
	server, db, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)

	suffix := strconv.FormatInt(time.Now().UnixNano(), 10)
	testUsername := "test.user." + suffix
	testEmail := testUsername + "@integration.com"
	testPassword := "StrongPassword123!"

	// --- Test Registration ---
	t.Run("Register Success", func(t *testing.T) {
		body := models.RegisterRequest{Username: testUsername, Email: testEmail, Password: testPassword}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/register", "", body)

		assert.Equal(http.StatusCreated, status, "Expected status 201 Created")
		assert.True(env.Success)
		assert.Equal("Registration successful", env.Message)

		var data models.AuthResponse
		assert.NoError(json.Unmarshal(env.Data, &data))
		assert.NotEmpty(data.Token, "Token should be issued on registration")
		assert.Equal(testEmail, data.User.Email)

		// Verify user created in DB (Direct DB check)
		user, err := storage.FindUserByEmail(context.Background(), db, testEmail)
		assert.NoError(err, "Finding user after registration should not fail")
		if assert.NotNil(user, "User should exist in DB after registration") {
			assert.True(auth.CheckPasswordHash(testPassword, user.PasswordHash), "Stored password hash should match")
		}
	})

	t.Run("Register Conflict (Duplicate Email, Different Case)", func(t *testing.T) {
		body := models.RegisterRequest{
			Username: "someone.else." + suffix,
			Email:    strings.ToUpper(testEmail),
			Password: testPassword,
		}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/register", "", body)

		assert.Equal(http.StatusConflict, status, "Upper-cased duplicate email should still conflict")
		assert.Equal(models.CodeUserExists, env.Error.Code)
	})

	t.Run("Register Conflict (Duplicate Username)", func(t *testing.T) {
		body := models.RegisterRequest{
			Username: testUsername,
			Email:    "fresh." + suffix + "@integration.com",
			Password: testPassword,
		}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/register", "", body)

		assert.Equal(http.StatusConflict, status)
		assert.Equal(models.CodeUserExists, env.Error.Code)
	})

	t.Run("Register Bad Request (Weak Password)", func(t *testing.T) {
		body := models.RegisterRequest{Username: "weak." + suffix, Email: "weak." + suffix + "@example.com", Password: "short"}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/register", "", body)

		assert.Equal(http.StatusBadRequest, status)
		assert.Equal(models.CodeWeakPassword, env.Error.Code)
	})

	t.Run("Register Bad Request (Invalid Email Format)", func(t *testing.T) {
		body := models.RegisterRequest{Username: "bademail." + suffix, Email: "invalid-email-format", Password: testPassword}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/register", "", body)

		assert.Equal(http.StatusBadRequest, status)
		assert.Equal(models.CodeMissingFields, env.Error.Code)
	})

	// --- Test Login ---
	t.Run("Login Success (Case-Insensitive Email)", func(t *testing.T) {
		body := models.LoginRequest{Email: strings.ToUpper(testEmail), Password: testPassword}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/login", "", body)

		assert.Equal(http.StatusOK, status, "Expected status 200 OK")
		assert.Equal("Login successful", env.Message)

		var data models.AuthResponse
		assert.NoError(json.Unmarshal(env.Data, &data))
		assert.NotEmpty(data.Token, "Token should not be empty on successful login")

		userID, err := auth.ValidateJWT(data.Token, testJWTSecret)
		assert.NoError(err, "Returned token should be valid")
		assert.True(userID > 0, "UserID from token should be positive")
	})

	t.Run("Login Unauthorized (Wrong Password)", func(t *testing.T) {
		body := models.LoginRequest{Email: testEmail, Password: "IncorrectPassword"}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/login", "", body)

		assert.Equal(http.StatusUnauthorized, status, "Expected status 401 Unauthorized for wrong password")
		assert.Equal(models.CodeInvalidCredentials, env.Error.Code)
	})

	t.Run("Login Unauthorized (User Not Found)", func(t *testing.T) {
		body := models.LoginRequest{Email: "nosuchuser@example.com", Password: "anyPassword"}
		status, env := doRequest(t, server, http.MethodPost, "/api/auth/login", "", body)

		// Missing users and wrong passwords are indistinguishable on purpose
		assert.Equal(http.StatusUnauthorized, status)
		assert.Equal(models.CodeInvalidCredentials, env.Error.Code)
	})

	// --- Test Profile ---
	t.Run("Profile Round Trip", func(t *testing.T) {
		body := models.LoginRequest{Email: testEmail, Password: testPassword}
		_, env := doRequest(t, server, http.MethodPost, "/api/auth/login", "", body)
		var loginData models.AuthResponse
		require.NoError(t, json.Unmarshal(env.Data, &loginData))
		token := loginData.Token

		status, env := doRequest(t, server, http.MethodGet, "/api/auth/profile", token, nil)
		assert.Equal(http.StatusOK, status)

		var profile models.UserResponse
		assert.NoError(json.Unmarshal(env.Data, &profile))
		assert.Equal(testEmail, profile.Email)

		newName := "renamed." + suffix
		status, env = doRequest(t, server, http.MethodPut, "/api/auth/profile", token,
			models.UpdateProfileRequest{Username: &newName})
		assert.Equal(http.StatusOK, status)
		assert.NoError(json.Unmarshal(env.Data, &profile))
		assert.Equal(newName, profile.Username)
	})

	t.Run("Protected Route Without Token", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodGet, "/api/auth/profile", "", nil)
		assert.Equal(http.StatusUnauthorized, status)
		assert.Equal(models.CodeNoToken, env.Error.Code)
	})

	t.Run("Protected Route With Garbage Token", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodGet, "/api/auth/profile", "not-a-jwt", nil)
		assert.Equal(http.StatusUnauthorized, status)
		assert.Equal(models.CodeInvalidToken, env.Error.Code)
	})
}

// TestGetProfileStorageFailure checks that a pool failure surfaces as an
// internal error instead of masquerading as a missing user.
func TestGetProfileStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, cfg, cleanup := testDBSetup(t)
	cleanup() // every query on the closed pool now fails

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	c.Set(middleware.ContextUserIDKey, int64(1))

	handlers.NewAuthHandler(db, cfg).GetProfile(c)

	require.Len(t, c.Errors, 1)
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

// TestHealthAndIndex covers the unauthenticated service endpoints.
func TestHealthAndIndex(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	status, env := doRequest(t, server, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = doRequest(t, server, http.MethodGet, "/api", "", nil)
	assert.Equal(t, http.StatusOK, status)

	var data map[string]any
	assert.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data, "endpoints")
}

// uniqueName builds a collision-free fixture name for parallel test users.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, time.Now().UnixNano())
}
