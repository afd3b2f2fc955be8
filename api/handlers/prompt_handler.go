// api/handlers/prompt_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/core"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

// PromptHandler holds dependencies for prompt CRUD handlers.
type PromptHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(db *sql.DB, cfg *config.Config) *PromptHandler {
	return &PromptHandler{DB: db, Cfg: cfg}
}

// List returns a filtered, sorted page of the caller's prompts.
func (h *PromptHandler) List(c *gin.Context) {
	opts, err := core.ParsePromptListOptions(c.Request.URL.Query())
	if err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidData, err.Error())
		return
	}

	details, total, err := storage.ListPrompts(c.Request.Context(), h.DB, currentUserID(c), opts)
	if err != nil {
		_ = c.Error(err)
		return
	}

	models.RespondPage(c, models.NewPromptResponses(details), models.Pagination{
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(opts.PageSize))),
	})
}

// GetByID returns one prompt with its category, tags and latest versions.
func (h *PromptHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	detail, err := storage.GetPromptDetail(c.Request.Context(), h.DB, currentUserID(c), id, true)
	if err != nil {
		if errors.Is(err, storage.ErrPromptNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodePromptNotFound, "Prompt does not exist")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewPromptResponse(detail), "")
}

// Create stores a new prompt along with its tag links and version 1.
func (h *PromptHandler) Create(c *gin.Context) {
	userID := currentUserID(c)

	var req models.CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Title and content are required")
		return
	}
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Title and content are required")
		return
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		req.Description = &desc
	}

	ctx := c.Request.Context()

	if req.CategoryID != nil {
		if _, err := storage.FindCategory(ctx, h.DB, userID, *req.CategoryID); err != nil {
			if errors.Is(err, storage.ErrCategoryNotFound) {
				models.RespondError(c, http.StatusBadRequest, models.CodeCategoryNotFound, "Category does not exist")
				return
			}
			_ = c.Error(err)
			return
		}
	}

	params := storage.CreatePromptParams{
		Title:       title,
		Content:     content,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Variables:   models.MarshalVariables(req.Variables),
		Metadata:    models.MarshalObject(req.Metadata),
		TagIDs:      req.Tags,
	}
	id, err := storage.CreatePrompt(ctx, h.DB, userID, params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	detail, err := storage.GetPromptDetail(ctx, h.DB, userID, id, true)
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondCreated(c, models.NewPromptResponse(detail), "Prompt created")
}

// Update applies a partial update. Touching the title or content records a
// new version snapshot; a description-only or flag-only edit does not.
func (h *PromptHandler) Update(c *gin.Context) {
	userID := currentUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidData, "Invalid prompt data")
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Title cannot be empty")
			return
		}
		req.Title = &title
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Content cannot be empty")
			return
		}
		req.Content = &content
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		req.Description = &desc
	}

	ctx := c.Request.Context()

	// An explicit null clears the category; only a real id needs an
	// ownership check.
	if req.CategoryID.Set && req.CategoryID.Valid {
		if _, err := storage.FindCategory(ctx, h.DB, userID, req.CategoryID.Value); err != nil {
			if errors.Is(err, storage.ErrCategoryNotFound) {
				models.RespondError(c, http.StatusBadRequest, models.CodeCategoryNotFound, "Category does not exist")
				return
			}
			_ = c.Error(err)
			return
		}
	}

	upd := storage.PromptUpdate{
		Title:          req.Title,
		Content:        req.Content,
		Description:    req.Description,
		CategoryID:     req.CategoryID.Ptr(),
		SetCategory:    req.CategoryID.Set,
		IsFavorite:     req.IsFavorite,
		IsPublic:       req.IsPublic,
		Tags:           req.Tags,
		ContentTouched: req.Title != nil || req.Content != nil,
	}
	if req.Variables != nil {
		vars := models.MarshalVariables(*req.Variables)
		upd.Variables = &vars
	}
	if req.Metadata != nil {
		meta := models.MarshalObject(*req.Metadata)
		upd.Metadata = &meta
	}

	if err := storage.UpdatePrompt(ctx, h.DB, userID, id, upd); err != nil {
		if errors.Is(err, storage.ErrPromptNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodePromptNotFound, "Prompt does not exist")
			return
		}
		_ = c.Error(err)
		return
	}

	detail, err := storage.GetPromptDetail(ctx, h.DB, userID, id, true)
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewPromptResponse(detail), "Prompt updated")
}

// Delete soft-deletes a prompt. Versions and tag links stay in place for a
// future restore.
func (h *PromptHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := storage.SoftDeletePrompt(c.Request.Context(), h.DB, currentUserID(c), id); err != nil {
		if errors.Is(err, storage.ErrPromptNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodePromptNotFound, "Prompt does not exist")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, nil, "Prompt deleted")
}

// Use bumps the usage counter and stamps the last-used time.
func (h *PromptHandler) Use(c *gin.Context) {
	userID := currentUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := storage.IncrementPromptUsage(ctx, h.DB, userID, id); err != nil {
		if errors.Is(err, storage.ErrPromptNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodePromptNotFound, "Prompt does not exist")
			return
		}
		_ = c.Error(err)
		return
	}

	detail, err := storage.GetPromptDetail(ctx, h.DB, userID, id, false)
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewPromptResponse(detail), "Usage recorded")
}

// Copy duplicates a prompt under a "(copy)" title. The copy starts with a
// fresh usage counter and no version history.
func (h *PromptHandler) Copy(c *gin.Context) {
	userID := currentUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	copyID, err := storage.CopyPrompt(ctx, h.DB, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrPromptNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodePromptNotFound, "Prompt does not exist")
			return
		}
		_ = c.Error(err)
		return
	}

	detail, err := storage.GetPromptDetail(ctx, h.DB, userID, copyID, false)
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondCreated(c, models.NewPromptResponse(detail), "Prompt copied")
}
