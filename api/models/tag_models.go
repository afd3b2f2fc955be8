// api/models/tag_models.go
package models

import (
	"time"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// --- Tag Request Structs ---

// CreateTagRequest defines the body for tag creation.
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// UpdateTagRequest carries partial updates; nil fields stay untouched.
type UpdateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// BatchTagItem is one requested tag in a batch create.
type BatchTagItem struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateBatchTagsRequest defines the body for POST /tags/batch.
type CreateBatchTagsRequest struct {
	Tags []BatchTagItem `json:"tags"`
}

// BatchTagsResponse reports the outcome of a batch create.
type BatchTagsResponse struct {
	Created  int64    `json:"created"`
	Existing []string `json:"existing"`
}

// --- Tag Response Structs ---

// TagPromptResponse is the prompt summary on a tag detail view.
type TagPromptResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	UsageCount  int64     `json:"usageCount"`
	IsFavorite  bool      `json:"isFavorite"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TagResponse is the full tag payload.
type TagResponse struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"userId"`
	Name        string              `json:"name"`
	Color       string              `json:"color"`
	CreatedAt   time.Time           `json:"createdAt"`
	PromptCount int64               `json:"promptCount"`
	Prompts     []TagPromptResponse `json:"prompts,omitempty"`
}

// NewTagResponse shapes a tag with its association count for the wire.
func NewTagResponse(t *domain.TagWithCount) TagResponse {
	return TagResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Name:        t.Name,
		Color:       t.Color,
		CreatedAt:   t.CreatedAt,
		PromptCount: t.PromptCount,
	}
}

// NewTagDetailResponse adds the recent prompt summaries.
func NewTagDetailResponse(d *domain.TagDetail) TagResponse {
	resp := NewTagResponse(&d.TagWithCount)
	for _, p := range d.Prompts {
		resp.Prompts = append(resp.Prompts, TagPromptResponse{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			UsageCount:  p.UsageCount,
			IsFavorite:  p.IsFavorite,
			CreatedAt:   p.CreatedAt,
		})
	}
	return resp
}

// NewTagResponses shapes a listing.
func NewTagResponses(tags []domain.TagWithCount) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, NewTagResponse(&tags[i]))
	}
	return out
}
