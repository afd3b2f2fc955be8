// api/models/prompt_models.go
package models

import (
	"time"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// --- Prompt Request Structs ---

// CreatePromptRequest defines the body for prompt creation.
type CreatePromptRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Content     string                  `json:"content" binding:"required"`
	Description *string                 `json:"description"`
	CategoryID  *int64                  `json:"categoryId"`
	Variables   []domain.PromptVariable `json:"variables"`
	Metadata    map[string]any          `json:"metadata"`
	Tags        []int64                 `json:"tags"`
}

// UpdatePromptRequest carries partial updates. A non-nil Tags slice (even
// empty) replaces the whole association set; nil leaves it alone. CategoryID
// distinguishes an explicit null, which un-categorizes the prompt, from the
// field not being sent.
type UpdatePromptRequest struct {
	Title       *string                  `json:"title"`
	Content     *string                  `json:"content"`
	Description *string                  `json:"description"`
	CategoryID  OptionalID               `json:"categoryId,omitzero"`
	Variables   *[]domain.PromptVariable `json:"variables"`
	Metadata    *map[string]any          `json:"metadata"`
	IsFavorite  *bool                    `json:"isFavorite"`
	IsPublic    *bool                    `json:"isPublic"`
	Tags        *[]int64                 `json:"tags"`
}

// --- Prompt Response Structs ---

// PromptTagResponse is the tag summary embedded in prompt payloads.
type PromptTagResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PromptVersionResponse is a version summary; the snapshot body is omitted
// to keep detail payloads bounded.
type PromptVersionResponse struct {
	ID            int64     `json:"id"`
	VersionNumber int       `json:"versionNumber"`
	Title         string    `json:"title"`
	ChangeLog     *string   `json:"changeLog"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PromptResponse is the full prompt payload.
type PromptResponse struct {
	ID          int64                   `json:"id"`
	UserID      int64                   `json:"userId"`
	Title       string                  `json:"title"`
	Content     string                  `json:"content"`
	Description *string                 `json:"description"`
	CategoryID  *int64                  `json:"categoryId"`
	Variables   []domain.PromptVariable `json:"variables"`
	Metadata    map[string]any          `json:"metadata"`
	IsFavorite  bool                    `json:"isFavorite"`
	IsPublic    bool                    `json:"isPublic"`
	UsageCount  int64                   `json:"usageCount"`
	LastUsedAt  *time.Time              `json:"lastUsedAt"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	Category    *CategoryRefResponse    `json:"category"`
	Tags        []PromptTagResponse     `json:"tags"`
	Versions    []PromptVersionResponse `json:"versions,omitempty"`
}

// NewPromptResponse shapes a hydrated prompt for the wire, parsing the
// JSON-as-text columns exactly once at this boundary.
func NewPromptResponse(d *domain.PromptDetail) PromptResponse {
	resp := PromptResponse{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Content:     d.Content,
		Description: d.Description,
		CategoryID:  d.CategoryID,
		Variables:   UnmarshalVariables(d.Variables),
		Metadata:    UnmarshalObject(d.Metadata),
		IsFavorite:  d.IsFavorite,
		IsPublic:    d.IsPublic,
		UsageCount:  d.UsageCount,
		LastUsedAt:  d.LastUsedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Tags:        []PromptTagResponse{},
	}
	if d.Category != nil {
		resp.Category = &CategoryRefResponse{ID: d.Category.ID, Name: d.Category.Name, Color: d.Category.Color}
	}
	for _, t := range d.Tags {
		resp.Tags = append(resp.Tags, PromptTagResponse{ID: t.ID, Name: t.Name, Color: t.Color})
	}
	for _, v := range d.Versions {
		resp.Versions = append(resp.Versions, PromptVersionResponse{
			ID:            v.ID,
			VersionNumber: v.VersionNumber,
			Title:         v.Title,
			ChangeLog:     v.ChangeLog,
			CreatedAt:     v.CreatedAt,
		})
	}
	return resp
}

// NewPromptResponses shapes a listing.
func NewPromptResponses(details []domain.PromptDetail) []PromptResponse {
	out := make([]PromptResponse, 0, len(details))
	for i := range details {
		out = append(out, NewPromptResponse(&details[i]))
	}
	return out
}
