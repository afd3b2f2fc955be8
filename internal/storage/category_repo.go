// internal/storage/category_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// Specific errors for category operations
var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryHasChildren = errors.New("category still has child categories")
)

const categoryColumns = `id, user_id, name, description, color, parent_id, sort_order, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var cat domain.Category
	err := row.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Description, &cat.Color,
		&cat.ParentID, &cat.SortOrder, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("database error scanning category: %w", err)
	}
	return &cat, nil
}

// FindCategory retrieves a single category scoped to its owner.
func FindCategory(ctx context.Context, db *sql.DB, userID, id int64) (*domain.Category, error) {
	sqlStatement := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ? AND user_id = ? LIMIT 1`
	return scanCategory(db.QueryRowContext(ctx, sqlStatement, id, userID))
}

// ListCategories returns every category owned by the user, hydrated with
// parent/children summaries and the count of non-deleted prompts.
// Ordering: parent id, then sort order, then name.
func ListCategories(ctx context.Context, db *sql.DB, userID int64) ([]domain.CategoryDetail, error) {
	sqlStatement := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?
		ORDER BY parent_id ASC, sort_order ASC, name ASC`
	rows, err := db.QueryContext(ctx, sqlStatement, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	byID := make(map[int64]*domain.Category)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error listing categories: %w", err)
	}
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	counts, err := promptCountsByCategory(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	// Children per parent, already in sort_order from the listing query
	childrenByParent := make(map[int64][]domain.CategoryChild)
	for i := range categories {
		cat := &categories[i]
		if cat.ParentID == nil {
			continue
		}
		childrenByParent[*cat.ParentID] = append(childrenByParent[*cat.ParentID], domain.CategoryChild{
			ID:          cat.ID,
			Name:        cat.Name,
			Color:       cat.Color,
			Description: cat.Description,
		})
	}

	details := make([]domain.CategoryDetail, 0, len(categories))
	for i := range categories {
		cat := categories[i]
		detail := domain.CategoryDetail{
			Category:    cat,
			Children:    childrenByParent[cat.ID],
			PromptCount: counts[cat.ID],
		}
		if cat.ParentID != nil {
			if parent, ok := byID[*cat.ParentID]; ok {
				detail.Parent = &domain.CategoryRef{ID: parent.ID, Name: parent.Name, Color: parent.Color}
			}
		}
		details = append(details, detail)
	}
	return details, nil
}

// GetCategoryDetail returns one hydrated category plus its 10 most recent
// non-deleted prompts.
func GetCategoryDetail(ctx context.Context, db *sql.DB, userID, id int64) (*domain.CategoryDetail, error) {
	cat, err := FindCategory(ctx, db, userID, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.CategoryDetail{Category: *cat}

	if cat.ParentID != nil {
		parent, err := FindCategory(ctx, db, userID, *cat.ParentID)
		if err == nil {
			detail.Parent = &domain.CategoryRef{ID: parent.ID, Name: parent.Name, Color: parent.Color}
		} else if !errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
	}

	childSQL := `SELECT id, name, color, description FROM categories
		WHERE user_id = ? AND parent_id = ? ORDER BY sort_order ASC`
	childRows, err := db.QueryContext(ctx, childSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("database error loading children: %w", err)
	}
	defer childRows.Close()
	for childRows.Next() {
		var child domain.CategoryChild
		if err := childRows.Scan(&child.ID, &child.Name, &child.Color, &child.Description); err != nil {
			return nil, fmt.Errorf("database error scanning child category: %w", err)
		}
		detail.Children = append(detail.Children, child)
	}
	if err := childRows.Err(); err != nil {
		return nil, fmt.Errorf("database error loading children: %w", err)
	}

	countSQL := `SELECT COUNT(*) FROM prompts WHERE user_id = ? AND category_id = ? AND deleted_at IS NULL`
	if err := db.QueryRowContext(ctx, countSQL, userID, id).Scan(&detail.PromptCount); err != nil {
		return nil, fmt.Errorf("database error counting prompts: %w", err)
	}

	promptSQL := `SELECT id, title, created_at FROM prompts
		WHERE user_id = ? AND category_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT 10`
	promptRows, err := db.QueryContext(ctx, promptSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("database error loading recent prompts: %w", err)
	}
	defer promptRows.Close()
	for promptRows.Next() {
		var ref domain.PromptRef
		if err := promptRows.Scan(&ref.ID, &ref.Title, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning prompt summary: %w", err)
		}
		detail.RecentPrompts = append(detail.RecentPrompts, ref)
	}
	if err := promptRows.Err(); err != nil {
		return nil, fmt.Errorf("database error loading recent prompts: %w", err)
	}

	return detail, nil
}

// SiblingNameExists reports whether another category with the same name lives
// under the same parent. NULL parents form one sibling group, which is why
// this lives here instead of a UNIQUE index.
func SiblingNameExists(ctx context.Context, db *sql.DB, userID int64, parentID *int64, name string, excludeID int64) (bool, error) {
	var count int
	var err error
	if parentID == nil {
		sqlStatement := `SELECT COUNT(*) FROM categories WHERE user_id = ? AND name = ? AND parent_id IS NULL AND id != ?`
		err = db.QueryRowContext(ctx, sqlStatement, userID, name, excludeID).Scan(&count)
	} else {
		sqlStatement := `SELECT COUNT(*) FROM categories WHERE user_id = ? AND name = ? AND parent_id = ? AND id != ?`
		err = db.QueryRowContext(ctx, sqlStatement, userID, name, *parentID, excludeID).Scan(&count)
	}
	if err != nil {
		return false, fmt.Errorf("database error checking sibling names: %w", err)
	}
	return count > 0, nil
}

// ParentChainContains walks the ancestor chain starting at startID and
// reports whether targetID appears in it. Used to reject re-parenting a
// category under its own descendant.
func ParentChainContains(ctx context.Context, db *sql.DB, userID, startID, targetID int64) (bool, error) {
	visited := make(map[int64]bool)
	current := &startID
	for current != nil {
		if *current == targetID {
			return true, nil
		}
		if visited[*current] {
			// Pre-existing cycle in the data; treat as containing to be safe
			return true, nil
		}
		visited[*current] = true

		var parentID *int64
		sqlStatement := `SELECT parent_id FROM categories WHERE id = ? AND user_id = ? LIMIT 1`
		err := db.QueryRowContext(ctx, sqlStatement, *current, userID).Scan(&parentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, fmt.Errorf("database error walking parent chain: %w", err)
		}
		current = parentID
	}
	return false, nil
}

// CreateCategory inserts a category and returns its id.
func CreateCategory(ctx context.Context, db *sql.DB, userID int64, name string, description *string, color string, parentID *int64, sortOrder int) (int64, error) {
	sqlStatement := `INSERT INTO categories (user_id, name, description, color, parent_id, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, sqlStatement, userID, name, description, color, parentID, sortOrder)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert category '%s' for user %d: %v", name, userID, err)
		return 0, fmt.Errorf("database error creating category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve category ID after creation: %w", err)
	}
	return id, nil
}

// CategoryUpdate carries a partial category update; nil fields stay untouched.
// SetParent applies ParentID even when it is nil, moving the category to the
// root.
type CategoryUpdate struct {
	Name        *string
	Description *string
	Color       *string
	ParentID    *int64
	SetParent   bool
	SortOrder   *int
}

// UpdateCategory applies a partial update scoped by owner. Business checks
// (sibling uniqueness, cycle walk) belong to the handler.
func UpdateCategory(ctx context.Context, db *sql.DB, userID, id int64, upd CategoryUpdate) error {
	var setClauses []string
	var values []any

	if upd.Name != nil {
		setClauses = append(setClauses, "name = ?")
		values = append(values, *upd.Name)
	}
	if upd.Description != nil {
		setClauses = append(setClauses, "description = ?")
		values = append(values, *upd.Description)
	}
	if upd.Color != nil {
		setClauses = append(setClauses, "color = ?")
		values = append(values, *upd.Color)
	}
	if upd.SetParent {
		setClauses = append(setClauses, "parent_id = ?")
		values = append(values, upd.ParentID)
	}
	if upd.SortOrder != nil {
		setClauses = append(setClauses, "sort_order = ?")
		values = append(values, *upd.SortOrder)
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	values = append(values, id, userID)
	sqlStatement := fmt.Sprintf(`UPDATE categories SET %s WHERE id = ? AND user_id = ?`, strings.Join(setClauses, ", "))
	result, err := db.ExecContext(ctx, sqlStatement, values...)
	if err != nil {
		customLog.Warnf("Storage: Failed to update category %d for user %d: %v", id, userID, err)
		return fmt.Errorf("database error updating category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error updating category: %w", err)
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes a category in one transaction: refuses when child
// categories exist, otherwise reassigns its non-deleted prompts to
// "uncategorized" (NULL) before deleting the row.
func DeleteCategory(ctx context.Context, db *sql.DB, userID, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists); err != nil {
		return fmt.Errorf("database error checking category: %w", err)
	}
	if exists == 0 {
		return ErrCategoryNotFound
	}

	var children int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = ? AND user_id = ?`, id, userID).Scan(&children); err != nil {
		return fmt.Errorf("database error counting children: %w", err)
	}
	if children > 0 {
		return ErrCategoryHasChildren
	}

	if _, err := tx.ExecContext(ctx, `UPDATE prompts SET category_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE category_id = ? AND user_id = ? AND deleted_at IS NULL`, id, userID); err != nil {
		return fmt.Errorf("database error reassigning prompts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("database error deleting category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category delete: %w", err)
	}
	return nil
}

// UpdateCategorySortOrder applies one reorder entry scoped by owner. A miss
// (wrong owner or missing id) is silently skipped, matching the batch
// partial-success contract.
func UpdateCategorySortOrder(ctx context.Context, db *sql.DB, userID, id int64, sortOrder int) error {
	sqlStatement := `UPDATE categories SET sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`
	if _, err := db.ExecContext(ctx, sqlStatement, sortOrder, id, userID); err != nil {
		return fmt.Errorf("database error reordering category %d: %w", id, err)
	}
	return nil
}

// promptCountsByCategory returns non-deleted prompt counts keyed by category id.
func promptCountsByCategory(ctx context.Context, db *sql.DB, userID int64) (map[int64]int64, error) {
	sqlStatement := `SELECT category_id, COUNT(*) FROM prompts
		WHERE user_id = ? AND deleted_at IS NULL AND category_id IS NOT NULL
		GROUP BY category_id`
	rows, err := db.QueryContext(ctx, sqlStatement, userID)
	if err != nil {
		return nil, fmt.Errorf("database error counting prompts per category: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var categoryID, count int64
		if err := rows.Scan(&categoryID, &count); err != nil {
			return nil, fmt.Errorf("database error scanning prompt counts: %w", err)
		}
		counts[categoryID] = count
	}
	return counts, rows.Err()
}
