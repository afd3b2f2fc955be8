// internal/storage/database.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// schemaStatements ensures the six application tables. Index/constraint notes:
//   - users.email is stored lower-cased; uniqueness is case-insensitive by construction.
//   - categories sibling uniqueness (user_id, parent_id, name) lives in the repository
//     because a SQL UNIQUE index treats every NULL parent_id as distinct.
//   - prompts.category_id is SET NULL on category delete as a backstop; the delete
//     path reassigns explicitly inside a transaction.
//   - prompt_versions is append-only; (prompt_id, version_number) is unique.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		avatar_url TEXT,
		settings TEXT NOT NULL DEFAULT '{}',
		deleted_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		color TEXT NOT NULL DEFAULT '#6B7280',
		parent_id INTEGER,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (parent_id) REFERENCES categories(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id, parent_id, sort_order);`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '#6B7280',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, name),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		description TEXT,
		category_id INTEGER,
		variables TEXT NOT NULL DEFAULT '[]',
		metadata TEXT NOT NULL DEFAULT '{}',
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_public INTEGER NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TIMESTAMP,
		deleted_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_user ON prompts(user_id, deleted_at);`,
	`CREATE TABLE IF NOT EXISTS prompt_tags (
		prompt_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (prompt_id, tag_id),
		FOREIGN KEY (prompt_id) REFERENCES prompts(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS prompt_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prompt_id INTEGER NOT NULL,
		version_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		description TEXT,
		variables TEXT NOT NULL DEFAULT '[]',
		change_log TEXT,
		created_by INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (prompt_id, version_number),
		FOREIGN KEY (prompt_id) REFERENCES prompts(id) ON DELETE CASCADE,
		FOREIGN KEY (created_by) REFERENCES users(id)
	);`,
}

// ConnectDB initializes the connection pool for the application SQLite
// database and ensures the required tables exist.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.DatabaseDir, cfg.DatabaseFile)
	customLog.Printf("Storage: Initializing database: %s", dbPath)

	if err := os.MkdirAll(cfg.DatabaseDir, 0750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.DatabaseDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Foreign keys for cascade behavior, WAL and busy timeout for concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("Storage: Failed to open db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	customLog.Println("Storage: Database connection successful.")

	for _, stmt := range schemaStatements {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			customLog.Warnf("Storage: Failed to ensure schema: %v", err)
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	customLog.Println("Storage: Schema ensured.")

	return db, nil
}
