// api/handlers/tag_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
	"github.com/promptvault/promptvault-backend/internal/domain"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

// TagHandler holds dependencies for tag CRUD handlers.
type TagHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(db *sql.DB, cfg *config.Config) *TagHandler {
	return &TagHandler{DB: db, Cfg: cfg}
}

// List returns the caller's tags with prompt counts, optionally filtered by
// a substring search on the name.
func (h *TagHandler) List(c *gin.Context) {
	tags, err := storage.ListTags(c.Request.Context(), h.DB, currentUserID(c), c.Query("search"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewTagResponses(tags), "")
}

// Stats returns a bounded reporting view of the caller's tags with counts.
func (h *TagHandler) Stats(c *gin.Context) {
	tags, err := storage.TagStats(c.Request.Context(), h.DB, currentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewTagResponses(tags), "")
}

// GetByID returns one tag plus its 20 most recent prompts.
func (h *TagHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	detail, err := storage.GetTagDetail(c.Request.Context(), h.DB, currentUserID(c), id)
	if err != nil {
		if errors.Is(err, storage.ErrTagNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodeTagNotFound, "Tag does not exist")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, models.NewTagDetailResponse(detail), "")
}

// Create adds a tag. Names are unique per user.
func (h *TagHandler) Create(c *gin.Context) {
	var req models.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Tag name is required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Tag name is required")
		return
	}

	color := req.Color
	if color == "" {
		color = defaultColor
	}

	tag, err := storage.CreateTag(c.Request.Context(), h.DB, currentUserID(c), name, color)
	if err != nil {
		if errors.Is(err, storage.ErrTagNameExists) {
			models.RespondError(c, http.StatusBadRequest, models.CodeNameExists, "A tag with this name already exists")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondCreated(c, models.NewTagResponse(&domain.TagWithCount{Tag: *tag}), "Tag created")
}

// Update applies a partial update to a tag.
func (h *TagHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondError(c, http.StatusBadRequest, models.CodeInvalidData, "Invalid tag data")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Tag name is required")
			return
		}
		req.Name = &name
	}

	updated, err := storage.UpdateTag(c.Request.Context(), h.DB, currentUserID(c), id, req.Name, req.Color)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTagNotFound):
			models.RespondError(c, http.StatusNotFound, models.CodeTagNotFound, "Tag does not exist")
		case errors.Is(err, storage.ErrTagNameExists):
			models.RespondError(c, http.StatusBadRequest, models.CodeNameExists, "A tag with this name already exists")
		default:
			_ = c.Error(err)
		}
		return
	}
	models.RespondOK(c, models.NewTagResponse(&domain.TagWithCount{Tag: *updated}), "Tag updated")
}

// Delete removes a tag; prompt associations cascade away with it.
func (h *TagHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := storage.DeleteTag(c.Request.Context(), h.DB, currentUserID(c), id); err != nil {
		if errors.Is(err, storage.ErrTagNotFound) {
			models.RespondError(c, http.StatusNotFound, models.CodeTagNotFound, "Tag does not exist")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondOK(c, nil, "Tag deleted")
}

// CreateBatch inserts several tags in one request. Duplicate names inside the
// request are rejected, names already taken are skipped and reported back.
func (h *TagHandler) CreateBatch(c *gin.Context) {
	var req models.CreateBatchTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Tags) == 0 {
		models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "A non-empty tags array is required")
		return
	}

	inputs := make([]storage.BatchTagInput, 0, len(req.Tags))
	seen := make(map[string]struct{}, len(req.Tags))
	for _, t := range req.Tags {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Every tag needs a name")
			return
		}
		if _, dup := seen[name]; dup {
			models.RespondError(c, http.StatusBadRequest, models.CodeDuplicateNames, "Duplicate tag names in request")
			return
		}
		seen[name] = struct{}{}
		color := t.Color
		if color == "" {
			color = defaultColor
		}
		inputs = append(inputs, storage.BatchTagInput{Name: name, Color: color})
	}

	created, existing, err := storage.CreateTagsBatch(c.Request.Context(), h.DB, currentUserID(c), inputs)
	if err != nil {
		if errors.Is(err, storage.ErrAllTagsExist) {
			models.RespondError(c, http.StatusBadRequest, models.CodeAllExists, "All of these tags already exist")
			return
		}
		_ = c.Error(err)
		return
	}
	models.RespondCreated(c, models.BatchTagsResponse{Created: created, Existing: existing}, "Tags created")
}
