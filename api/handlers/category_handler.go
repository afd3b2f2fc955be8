// api/handlers/category_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

const defaultColor = "#6B7280"

// CategoryHandler holds dependencies for category CRUD handlers.
type CategoryHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(db *sql.DB, cfg *config.Config) *CategoryHandler {
	return &CategoryHandler{DB: db, Cfg: cfg}
}

// List returns every category owned by the caller, hydrated with parent,
// children and prompt counts.
func (h *CategoryHandler) List(c *gin.Context) {
	details, err := storage.ListCategories(c.Request.Context(), h.DB, currentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewCategoryResponses(details), "")
}

// GetByID returns one category plus its 10 most recent prompts.
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	detail, err := storage.GetCategoryDetail(c.Request.Context(), h.DB, currentUserID(c), id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodeCategoryNotFound, "Category does not exist")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewCategoryResponse(detail), "")
}

// Create adds a category after checking sibling uniqueness and parent ownership.
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := currentUserID(c)

	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Category name is required")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Category name is required")
		return
	}
	color := req.Color
	if color == "" {
		color = defaultColor
	}
	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}

	ctx := c.Request.Context()

	exists, err := storage.SiblingNameExists(ctx, h.DB, userID, req.ParentID, name, 0)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if exists {
		models.RespondError(c, http.StatusBadRequest, models.CodeNameExists, "A category with this name already exists here")
		return
	}

	if req.ParentID != nil {
		if _, err := storage.FindCategory(ctx, h.DB, userID, *req.ParentID); err != nil {
			if errors.Is(err, storage.ErrCategoryNotFound) {
				models.RespondError(c, http.StatusBadRequest, models.CodeParentNotFound, "Parent category does not exist")
				return
			}
			_ = c.Error(err)
			return
		}
	}

	id, err := storage.CreateCategory(ctx, h.DB, userID, name, req.Description, color, req.ParentID, sortOrder)
	if err != nil {
		_ = c.Error(err)
		return
	}

	detail, err := storage.GetCategoryDetail(ctx, h.DB, userID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondCreated(c, models.NewCategoryResponse(detail), "Category created")
}

// Update applies a partial update, re-checking sibling uniqueness against the
// effective future parent and walking the ancestor chain on re-parenting.
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := currentUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidData, "Invalid category data")
		return
	}

	ctx := c.Request.Context()

	existing, err := storage.FindCategory(ctx, h.DB, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodeCategoryNotFound, "Category does not exist")
			return
		}
		_ = c.Error(err)
		return
	}

	// Uniqueness is evaluated under the parent the category will end up with.
	// A present parentId wins, including an explicit null moving it to the root.
	effectiveParent := existing.ParentID
	if req.ParentID.Set {
		effectiveParent = req.ParentID.Ptr()
	}
	finalName := existing.Name
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Category name is required")
			return
		}
		req.Name = &name
		finalName = name
	}

	reParenting := false
	if req.ParentID.Set {
		switch {
		case existing.ParentID == nil:
			reParenting = req.ParentID.Valid
		default:
			reParenting = !req.ParentID.Valid || req.ParentID.Value != *existing.ParentID
		}
	}

	if finalName != existing.Name || reParenting {
		exists, err := storage.SiblingNameExists(ctx, h.DB, userID, effectiveParent, finalName, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if exists {
			models.RespondError(c, http.StatusBadRequest, models.CodeNameExists, "A category with this name already exists here")
			return
		}
	}

	if reParenting && req.ParentID.Valid {
		if _, err := storage.FindCategory(ctx, h.DB, userID, req.ParentID.Value); err != nil {
			if errors.Is(err, storage.ErrCategoryNotFound) {
				models.RespondError(c, http.StatusBadRequest, models.CodeParentNotFound, "Parent category does not exist")
				return
			}
			_ = c.Error(err)
			return
		}
		contains, err := storage.ParentChainContains(ctx, h.DB, userID, req.ParentID.Value, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if contains {
			models.RespondError(c, http.StatusBadRequest, models.CodeCircularReference, "A category cannot become a child of its own subtree")
			return
		}
	}

	upd := storage.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		ParentID:    req.ParentID.Ptr(),
		SetParent:   req.ParentID.Set,
		SortOrder:   req.SortOrder,
	}
	if err := storage.UpdateCategory(ctx, h.DB, userID, id, upd); err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodeCategoryNotFound, "Category does not exist")
			return
		}
		_ = c.Error(err)
		return
	}

	detail, err := storage.GetCategoryDetail(ctx, h.DB, userID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewCategoryResponse(detail), "Category updated")
}

// Delete removes a category: refused while children exist, prompts are
// migrated to uncategorized first.
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	err := storage.DeleteCategory(c.Request.Context(), h.DB, currentUserID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCategoryNotFound):
			models.RespondError(c, http.StatusNotFound, models.CodeCategoryNotFound, "Category does not exist")
		case errors.Is(err, storage.ErrCategoryHasChildren):
			models.RespondError(c, http.StatusBadRequest, models.CodeHasChildren, "Category still contains child categories")
		default:
			_ = c.Error(err)
		}
		return
	}
	models.RespondOK(c, nil, "Category deleted")
}

// Reorder applies a batch of sort-order updates as independent owner-scoped
// statements running concurrently. There is deliberately no atomicity across
// the batch; a partial failure leaves the rest applied.
func (h *CategoryHandler) Reorder(c *gin.Context) {
	userID := currentUserID(c)

	var req models.ReorderCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Categories == nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidData, "Invalid category data")
		return
	}

	ctx := c.Request.Context()
	var wg sync.WaitGroup
	errCh := make(chan error, len(req.Categories))
	for _, item := range req.Categories {
		wg.Add(1)
		go func(id int64, sortOrder int) {
			defer wg.Done()
			if err := storage.UpdateCategorySortOrder(ctx, h.DB, userID, id, sortOrder); err != nil {
				errCh <- err
			}
		}(item.ID, item.SortOrder)
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, nil, "Category order updated")
}
