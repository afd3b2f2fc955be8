// internal/storage/tag_repo.go
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

// Specific errors for tag operations
var (
	ErrTagNotFound   = errors.New("tag not found")
	ErrTagNameExists = errors.New("tag name already exists")
	ErrAllTagsExist  = errors.New("all requested tags already exist")
)

// ListTags returns the user's tags with association counts, optionally
// filtered by a name substring, ordered by name.
func ListTags(ctx context.Context, db *sql.DB, userID int64, search string) ([]domain.TagWithCount, error) {
	sqlStatement := `SELECT t.id, t.user_id, t.name, t.color, t.created_at,
			(SELECT COUNT(*) FROM prompt_tags pt WHERE pt.tag_id = t.id) AS prompt_count
		FROM tags t WHERE t.user_id = ?`
	args := []any{userID}
	if search != "" {
		sqlStatement += ` AND t.name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	sqlStatement += ` ORDER BY t.name ASC`

	return queryTagsWithCount(ctx, db, sqlStatement, args...)
}

// TagStats returns 20 tags with association counts, ordered by name.
func TagStats(ctx context.Context, db *sql.DB, userID int64) ([]domain.TagWithCount, error) {
	sqlStatement := `SELECT t.id, t.user_id, t.name, t.color, t.created_at,
			(SELECT COUNT(*) FROM prompt_tags pt WHERE pt.tag_id = t.id) AS prompt_count
		FROM tags t WHERE t.user_id = ? ORDER BY t.name ASC LIMIT 20`
	return queryTagsWithCount(ctx, db, sqlStatement, userID)
}

func queryTagsWithCount(ctx context.Context, db *sql.DB, sqlStatement string, args ...any) ([]domain.TagWithCount, error) {
	rows, err := db.QueryContext(ctx, sqlStatement, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.TagWithCount
	for rows.Next() {
		var t domain.TagWithCount
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt, &t.PromptCount); err != nil {
			return nil, fmt.Errorf("database error scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// FindTag retrieves a single tag scoped to its owner.
func FindTag(ctx context.Context, db *sql.DB, userID, id int64) (*domain.Tag, error) {
	var t domain.Tag
	sqlStatement := `SELECT id, user_id, name, color, created_at FROM tags WHERE id = ? AND user_id = ? LIMIT 1`
	err := db.QueryRowContext(ctx, sqlStatement, id, userID).Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("database error finding tag: %w", err)
	}
	return &t, nil
}

// GetTagDetail returns a tag hydrated with its association count and the 20
// most recently associated non-deleted prompts.
func GetTagDetail(ctx context.Context, db *sql.DB, userID, id int64) (*domain.TagDetail, error) {
	tag, err := FindTag(ctx, db, userID, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.TagDetail{TagWithCount: domain.TagWithCount{Tag: *tag}}

	countSQL := `SELECT COUNT(*) FROM prompt_tags WHERE tag_id = ?`
	if err := db.QueryRowContext(ctx, countSQL, id).Scan(&detail.PromptCount); err != nil {
		return nil, fmt.Errorf("database error counting tag associations: %w", err)
	}

	promptSQL := `SELECT p.id, p.title, p.description, p.usage_count, p.is_favorite, p.created_at
		FROM prompt_tags pt
		JOIN prompts p ON p.id = pt.prompt_id
		WHERE pt.tag_id = ? AND p.deleted_at IS NULL
		ORDER BY pt.created_at DESC LIMIT 20`
	rows, err := db.QueryContext(ctx, promptSQL, id)
	if err != nil {
		return nil, fmt.Errorf("database error loading tag prompts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.TagPrompt
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.UsageCount, &p.IsFavorite, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning tag prompt: %w", err)
		}
		detail.Prompts = append(detail.Prompts, p)
	}
	return detail, rows.Err()
}

// CreateTag inserts a tag, mapping the (user_id, name) unique constraint to
// ErrTagNameExists.
func CreateTag(ctx context.Context, db *sql.DB, userID int64, name, color string) (*domain.Tag, error) {
	sqlStatement := `INSERT INTO tags (user_id, name, color) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, sqlStatement, userID, name, color)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, ErrTagNameExists
		}
		customLog.Warnf("Storage: Failed to insert tag '%s' for user %d: %v", name, userID, err)
		return nil, fmt.Errorf("database error creating tag: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tag ID after creation: %w", err)
	}
	return FindTag(ctx, db, userID, id)
}

// UpdateTag applies a partial update; name uniqueness is mapped to
// ErrTagNameExists by the constraint.
func UpdateTag(ctx context.Context, db *sql.DB, userID, id int64, name, color *string) (*domain.Tag, error) {
	var setClauses []string
	var values []any

	if name != nil {
		setClauses = append(setClauses, "name = ?")
		values = append(values, *name)
	}
	if color != nil {
		setClauses = append(setClauses, "color = ?")
		values = append(values, *color)
	}

	if len(setClauses) > 0 {
		values = append(values, id, userID)
		sqlStatement := fmt.Sprintf(`UPDATE tags SET %s WHERE id = ? AND user_id = ?`, strings.Join(setClauses, ", "))
		result, err := db.ExecContext(ctx, sqlStatement, values...)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return nil, ErrTagNameExists
			}
			customLog.Warnf("Storage: Failed to update tag %d for user %d: %v", id, userID, err)
			return nil, fmt.Errorf("database error updating tag: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("database error updating tag: %w", err)
		}
		if affected == 0 {
			return nil, ErrTagNotFound
		}
	}

	return FindTag(ctx, db, userID, id)
}

// DeleteTag removes a tag; the prompt_tags rows go with it via cascade,
// the prompts themselves are untouched.
func DeleteTag(ctx context.Context, db *sql.DB, userID, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("database error deleting tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error deleting tag: %w", err)
	}
	if affected == 0 {
		return ErrTagNotFound
	}
	return nil
}

// BatchTagInput is one requested tag in a batch create.
type BatchTagInput struct {
	Name  string
	Color string
}

// CreateTagsBatch creates the requested tags that do not exist yet, skipping
// pre-existing names. Returns the number created and the skipped names;
// ErrAllTagsExist when nothing was left to create. The caller rejects
// duplicate names within the input before getting here.
func CreateTagsBatch(ctx context.Context, db *sql.DB, userID int64, inputs []BatchTagInput) (int64, []string, error) {
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		names = append(names, in.Name)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, 0, len(names)+1)
	args = append(args, userID)
	for _, n := range names {
		args = append(args, n)
	}

	existSQL := fmt.Sprintf(`SELECT name FROM tags WHERE user_id = ? AND name IN (%s)`, placeholders)
	rows, err := db.QueryContext(ctx, existSQL, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("database error checking existing tags: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	var existingNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return 0, nil, fmt.Errorf("database error scanning existing tag: %w", err)
		}
		existing[name] = true
		existingNames = append(existingNames, name)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("database error checking existing tags: %w", err)
	}

	var toCreate []BatchTagInput
	for _, in := range inputs {
		if !existing[in.Name] {
			toCreate = append(toCreate, in)
		}
	}
	if len(toCreate) == 0 {
		return 0, existingNames, ErrAllTagsExist
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	var created int64
	for _, in := range toCreate {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (user_id, name, color) VALUES (?, ?, ?)`, userID, in.Name, in.Color); err != nil {
			return 0, nil, fmt.Errorf("database error creating tag '%s': %w", in.Name, err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit batch create: %w", err)
	}
	return created, existingNames, nil
}
