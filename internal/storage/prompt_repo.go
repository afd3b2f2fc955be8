// internal/storage/prompt_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/promptvault/promptvault-backend/internal/core"
	"github.com/promptvault/promptvault-backend/internal/domain"
)

// Specific errors for prompt operations
var (
	ErrPromptNotFound = errors.New("prompt not found")
)

// Change-log notes written on the two snapshot paths.
const (
	changeLogInitial = "initial version"
	changeLogUpdate  = "content update"
)

const promptColumns = `id, user_id, title, content, description, category_id, variables, metadata,
	is_favorite, is_public, usage_count, last_used_at, deleted_at, created_at, updated_at`

func scanPrompt(row rowScanner) (*domain.Prompt, error) {
	var p domain.Prompt
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Description, &p.CategoryID,
		&p.Variables, &p.Metadata, &p.IsFavorite, &p.IsPublic, &p.UsageCount,
		&p.LastUsedAt, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("database error scanning prompt: %w", err)
	}
	return &p, nil
}

// queryer lets hydration helpers run against either *sql.DB or *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindPrompt retrieves a single non-deleted prompt scoped to its owner.
func FindPrompt(ctx context.Context, db *sql.DB, userID, id int64) (*domain.Prompt, error) {
	sqlStatement := `SELECT ` + promptColumns + ` FROM prompts
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL LIMIT 1`
	return scanPrompt(db.QueryRowContext(ctx, sqlStatement, id, userID))
}

// ListPrompts returns one page of the user's non-deleted prompts hydrated
// with category summaries and tags, plus the total matching count.
func ListPrompts(ctx context.Context, db *sql.DB, userID int64, opts *core.PromptListOptions) ([]domain.PromptDetail, int64, error) {
	where := []string{"p.user_id = ?", "p.deleted_at IS NULL"}
	args := []any{userID}

	if opts.Search != "" {
		where = append(where, "(p.title LIKE ? OR p.content LIKE ? OR p.description LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if opts.CategoryID != nil {
		where = append(where, "p.category_id = ?")
		args = append(args, *opts.CategoryID)
	}
	if opts.FavoriteOnly {
		where = append(where, "p.is_favorite = 1")
	}
	if len(opts.TagNames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(opts.TagNames)), ",")
		// Union semantics: one association to any requested name matches
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM prompt_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.prompt_id = p.id AND t.name IN (%s))`, placeholders))
		for _, name := range opts.TagNames {
			args = append(args, name)
		}
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM prompts p WHERE ` + whereClause
	if err := db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("database error counting prompts: %w", err)
	}

	// SortColumn/SortOrder come pre-validated from core, never from raw input
	listSQL := fmt.Sprintf(`SELECT %s FROM prompts p WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		promptColumns, whereClause, opts.SortColumn, strings.ToUpper(opts.SortOrder))
	listArgs := append(args, opts.PageSize, opts.Offset())

	rows, err := db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("database error listing prompts: %w", err)
	}
	defer rows.Close()

	var prompts []domain.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, 0, err
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("database error listing prompts: %w", err)
	}

	details, err := hydratePrompts(ctx, db, userID, prompts)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// GetPromptDetail returns one hydrated prompt; when withVersions is set the
// 10 most recent version summaries are attached.
func GetPromptDetail(ctx context.Context, db *sql.DB, userID, id int64, withVersions bool) (*domain.PromptDetail, error) {
	p, err := FindPrompt(ctx, db, userID, id)
	if err != nil {
		return nil, err
	}

	details, err := hydratePrompts(ctx, db, userID, []domain.Prompt{*p})
	if err != nil {
		return nil, err
	}
	detail := &details[0]

	if withVersions {
		versionSQL := `SELECT id, version_number, title, change_log, created_at FROM prompt_versions
			WHERE prompt_id = ? ORDER BY version_number DESC LIMIT 10`
		rows, err := db.QueryContext(ctx, versionSQL, id)
		if err != nil {
			return nil, fmt.Errorf("database error loading versions: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var v domain.PromptVersionSummary
			if err := rows.Scan(&v.ID, &v.VersionNumber, &v.Title, &v.ChangeLog, &v.CreatedAt); err != nil {
				return nil, fmt.Errorf("database error scanning version: %w", err)
			}
			detail.Versions = append(detail.Versions, v)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("database error loading versions: %w", err)
		}
	}

	return detail, nil
}

// CreatePromptParams carries everything needed to create a prompt.
// Variables and Metadata arrive pre-serialized from the API boundary.
type CreatePromptParams struct {
	Title       string
	Content     string
	Description *string
	CategoryID  *int64
	Variables   string
	Metadata    string
	TagIDs      []int64
}

// CreatePrompt inserts the prompt row, its tag associations and the initial
// version snapshot in a single transaction, so a crash can never leave a
// prompt without its version 1.
func CreatePrompt(ctx context.Context, db *sql.DB, userID int64, params CreatePromptParams) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin create transaction: %w", err)
	}
	defer tx.Rollback()

	insertSQL := `INSERT INTO prompts (user_id, title, content, description, category_id, variables, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insertSQL, userID, params.Title, params.Content,
		params.Description, params.CategoryID, params.Variables, params.Metadata)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert prompt '%s' for user %d: %v", params.Title, userID, err)
		return 0, fmt.Errorf("database error creating prompt: %w", err)
	}
	promptID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve prompt ID after creation: %w", err)
	}

	if err := insertPromptTags(ctx, tx, promptID, params.TagIDs); err != nil {
		return 0, err
	}

	if err := insertVersion(ctx, tx, promptID, params.Title, params.Content,
		params.Description, params.Variables, changeLogInitial, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prompt create: %w", err)
	}
	return promptID, nil
}

// PromptUpdate carries a partial prompt update. A non-nil Tags slice (even
// empty) replaces the association set; SetCategory applies CategoryID even
// when it is nil, clearing the category; ContentTouched forces a new version
// snapshot regardless of whether the values actually changed.
type PromptUpdate struct {
	Title          *string
	Content        *string
	Description    *string
	CategoryID     *int64
	SetCategory    bool
	Variables      *string
	Metadata       *string
	IsFavorite     *bool
	IsPublic       *bool
	Tags           *[]int64
	ContentTouched bool
}

// UpdatePrompt applies a partial update, the optional tag-set replacement and
// the optional version snapshot in one transaction.
func UpdatePrompt(ctx context.Context, db *sql.DB, userID, id int64, upd PromptUpdate) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin update transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanPrompt(tx.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL LIMIT 1`, id, userID))
	if err != nil {
		return err
	}

	var setClauses []string
	var values []any
	apply := func(clause string, v any) {
		setClauses = append(setClauses, clause)
		values = append(values, v)
	}

	if upd.Title != nil {
		apply("title = ?", *upd.Title)
		current.Title = *upd.Title
	}
	if upd.Content != nil {
		apply("content = ?", *upd.Content)
		current.Content = *upd.Content
	}
	if upd.Description != nil {
		apply("description = ?", *upd.Description)
		current.Description = upd.Description
	}
	if upd.SetCategory {
		apply("category_id = ?", upd.CategoryID)
	}
	if upd.Variables != nil {
		apply("variables = ?", *upd.Variables)
		current.Variables = *upd.Variables
	}
	if upd.Metadata != nil {
		apply("metadata = ?", *upd.Metadata)
	}
	if upd.IsFavorite != nil {
		apply("is_favorite = ?", *upd.IsFavorite)
	}
	if upd.IsPublic != nil {
		apply("is_public = ?", *upd.IsPublic)
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
		values = append(values, id, userID)
		sqlStatement := fmt.Sprintf(`UPDATE prompts SET %s WHERE id = ? AND user_id = ?`, strings.Join(setClauses, ", "))
		if _, err := tx.ExecContext(ctx, sqlStatement, values...); err != nil {
			customLog.Warnf("Storage: Failed to update prompt %d for user %d: %v", id, userID, err)
			return fmt.Errorf("database error updating prompt: %w", err)
		}
	}

	if upd.Tags != nil {
		// Replace, don't diff: delete the full set, insert the requested one
		if _, err := tx.ExecContext(ctx, `DELETE FROM prompt_tags WHERE prompt_id = ?`, id); err != nil {
			return fmt.Errorf("database error clearing tag associations: %w", err)
		}
		if err := insertPromptTags(ctx, tx, id, *upd.Tags); err != nil {
			return err
		}
	}

	// Snapshot whenever title or content appeared in the request, even when
	// the submitted value equals the stored one
	if upd.ContentTouched {
		if err := insertVersion(ctx, tx, id, current.Title, current.Content,
			current.Description, current.Variables, changeLogUpdate, userID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prompt update: %w", err)
	}
	return nil
}

// SoftDeletePrompt hides a prompt by stamping deleted_at. Tags, category and
// version history are left untouched.
func SoftDeletePrompt(ctx context.Context, db *sql.DB, userID, id int64) error {
	sqlStatement := `UPDATE prompts SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`
	result, err := db.ExecContext(ctx, sqlStatement, id, userID)
	if err != nil {
		return fmt.Errorf("database error deleting prompt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error deleting prompt: %w", err)
	}
	if affected == 0 {
		return ErrPromptNotFound
	}
	return nil
}

// IncrementPromptUsage bumps the usage counter and stamps last_used_at in one
// scoped statement; zero affected rows means the prompt is missing, deleted
// or owned by someone else.
func IncrementPromptUsage(ctx context.Context, db *sql.DB, userID, id int64) error {
	sqlStatement := `UPDATE prompts SET usage_count = usage_count + 1, last_used_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`
	result, err := db.ExecContext(ctx, sqlStatement, id, userID)
	if err != nil {
		return fmt.Errorf("database error incrementing usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error incrementing usage: %w", err)
	}
	if affected == 0 {
		return ErrPromptNotFound
	}
	return nil
}

// CopyPrompt duplicates a prompt (suffixed title, same content, category,
// variables, metadata and tag associations) in one transaction. The copy
// starts with no versions and zero usage.
func CopyPrompt(ctx context.Context, db *sql.DB, userID, id int64) (int64, error) {
	source, err := FindPrompt(ctx, db, userID, id)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin copy transaction: %w", err)
	}
	defer tx.Rollback()

	insertSQL := `INSERT INTO prompts (user_id, title, content, description, category_id, variables, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insertSQL, userID, source.Title+" (copy)", source.Content,
		source.Description, source.CategoryID, source.Variables, source.Metadata)
	if err != nil {
		return 0, fmt.Errorf("database error copying prompt: %w", err)
	}
	copyID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve prompt ID after copy: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO prompt_tags (prompt_id, tag_id)
		SELECT ?, tag_id FROM prompt_tags WHERE prompt_id = ?`, copyID, id); err != nil {
		return 0, fmt.Errorf("database error copying tag associations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prompt copy: %w", err)
	}
	return copyID, nil
}

// CountPromptVersions reports how many versions a prompt has accumulated.
func CountPromptVersions(ctx context.Context, db *sql.DB, promptID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_versions WHERE prompt_id = ?`, promptID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting versions: %w", err)
	}
	return count, nil
}

// --- internal helpers ---

func insertPromptTags(ctx context.Context, tx *sql.Tx, promptID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		// OR IGNORE keeps duplicate submissions idempotent at the set level
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO prompt_tags (prompt_id, tag_id) VALUES (?, ?)`,
			promptID, tagID); err != nil {
			return fmt.Errorf("database error linking tag %d: %w", tagID, err)
		}
	}
	return nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, promptID int64, title, content string, description *string, variables, changeLog string, createdBy int64) error {
	// Next number = max(existing)+1; safe inside the enclosing transaction
	sqlStatement := `INSERT INTO prompt_versions (prompt_id, version_number, title, content, description, variables, change_log, created_by)
		SELECT ?, COALESCE(MAX(version_number), 0) + 1, ?, ?, ?, ?, ?, ? FROM prompt_versions WHERE prompt_id = ?`
	if _, err := tx.ExecContext(ctx, sqlStatement, promptID, title, content, description, variables, changeLog, createdBy, promptID); err != nil {
		return fmt.Errorf("database error recording version: %w", err)
	}
	return nil
}

func hydratePrompts(ctx context.Context, q queryer, userID int64, prompts []domain.Prompt) ([]domain.PromptDetail, error) {
	details := make([]domain.PromptDetail, 0, len(prompts))
	if len(prompts) == 0 {
		return details, nil
	}

	ids := make([]any, 0, len(prompts))
	categoryIDs := make(map[int64]bool)
	for _, p := range prompts {
		ids = append(ids, p.ID)
		if p.CategoryID != nil {
			categoryIDs[*p.CategoryID] = true
		}
	}

	// Category summaries for the page
	categories := make(map[int64]domain.CategoryRef)
	if len(categoryIDs) > 0 {
		catArgs := []any{userID}
		placeholders := make([]string, 0, len(categoryIDs))
		for catID := range categoryIDs {
			placeholders = append(placeholders, "?")
			catArgs = append(catArgs, catID)
		}
		catSQL := fmt.Sprintf(`SELECT id, name, color FROM categories WHERE user_id = ? AND id IN (%s)`,
			strings.Join(placeholders, ","))
		rows, err := q.QueryContext(ctx, catSQL, catArgs...)
		if err != nil {
			return nil, fmt.Errorf("database error loading categories: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ref domain.CategoryRef
			if err := rows.Scan(&ref.ID, &ref.Name, &ref.Color); err != nil {
				return nil, fmt.Errorf("database error scanning category ref: %w", err)
			}
			categories[ref.ID] = ref
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("database error loading categories: %w", err)
		}
	}

	// Tags for the page
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	tagSQL := fmt.Sprintf(`SELECT pt.prompt_id, t.id, t.user_id, t.name, t.color, t.created_at
		FROM prompt_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.prompt_id IN (%s) ORDER BY t.name ASC`, placeholders)
	tagRows, err := q.QueryContext(ctx, tagSQL, ids...)
	if err != nil {
		return nil, fmt.Errorf("database error loading prompt tags: %w", err)
	}
	defer tagRows.Close()

	tagsByPrompt := make(map[int64][]domain.Tag)
	for tagRows.Next() {
		var promptID int64
		var t domain.Tag
		if err := tagRows.Scan(&promptID, &t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning prompt tag: %w", err)
		}
		tagsByPrompt[promptID] = append(tagsByPrompt[promptID], t)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("database error loading prompt tags: %w", err)
	}

	for _, p := range prompts {
		detail := domain.PromptDetail{Prompt: p, Tags: tagsByPrompt[p.ID]}
		if p.CategoryID != nil {
			if ref, ok := categories[*p.CategoryID]; ok {
				refCopy := ref
				detail.Category = &refCopy
			}
		}
		details = append(details, detail)
	}
	return details, nil
}
