// config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/promptvault/promptvault-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort    string
	JWTSecret     string
	JWTExpiration time.Duration
	DatabaseDir   string
	DatabaseFile  string
	ClientURL     string
	AppEnv        string
}

// IsProduction reports whether the service runs in the production environment.
// Controls log formatting and whether stack traces leak into error responses.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	appEnv := os.Getenv("APP_ENV")
	if appEnv != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8000")
	jwtSecret := os.Getenv("JWT_SECRET") // no fallback, deliberately
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "168")
	dbDir := getEnv("DATABASE_DIRECTORY", "data")
	dbFile := getEnv("DATABASE_FILE", "promptvault.db")
	clientURL := getEnv("CLIENT_URL", "http://localhost:3000")

	// A missing signing secret must abort startup. Substituting a known
	// default would silently issue forgeable tokens.
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 168h (7 days). Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 168
	}
	jwtExpiration := time.Hour * time.Duration(jwtExpHours)

	cfg := &Config{
		ServerPort:    port,
		JWTSecret:     jwtSecret,
		JWTExpiration: jwtExpiration,
		DatabaseDir:   dbDir,
		DatabaseFile:  dbFile,
		ClientURL:     clientURL,
		AppEnv:        appEnv,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v", cfg.ServerPort, cfg.JWTExpiration)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
