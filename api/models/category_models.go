// api/models/category_models.go
package models

import (
	"time"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// --- Category Request Structs ---

// CreateCategoryRequest defines the body for category creation.
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
	ParentID    *int64  `json:"parentId"`
	SortOrder   *int    `json:"sortOrder"`
}

// UpdateCategoryRequest carries partial updates; absent fields stay untouched.
// ParentID distinguishes an explicit null, which moves the category to the
// root, from the field not being sent.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Color       *string    `json:"color"`
	ParentID    OptionalID `json:"parentId,omitzero"`
	SortOrder   *int       `json:"sortOrder"`
}

// ReorderItem is one entry of a batch reorder request.
type ReorderItem struct {
	ID        int64 `json:"id"`
	SortOrder int   `json:"sortOrder"`
}

// ReorderCategoriesRequest defines the body for POST /categories/reorder.
type ReorderCategoriesRequest struct {
	Categories []ReorderItem `json:"categories"`
}

// --- Category Response Structs ---

// CategoryRefResponse is the parent summary embedded in category payloads.
type CategoryRefResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CategoryChildResponse is the child summary embedded in category payloads.
type CategoryChildResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}

// CategoryPromptResponse is the recent-prompt summary on a category detail.
type CategoryPromptResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// CategoryResponse is the full category payload.
type CategoryResponse struct {
	ID          int64                    `json:"id"`
	UserID      int64                    `json:"userId"`
	Name        string                   `json:"name"`
	Description *string                  `json:"description"`
	Color       string                   `json:"color"`
	ParentID    *int64                   `json:"parentId"`
	SortOrder   int                      `json:"sortOrder"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
	Parent      *CategoryRefResponse     `json:"parent"`
	Children    []CategoryChildResponse  `json:"children"`
	PromptCount int64                    `json:"promptCount"`
	Prompts     []CategoryPromptResponse `json:"prompts,omitempty"`
}

// NewCategoryResponse shapes a hydrated category for the wire.
func NewCategoryResponse(d *domain.CategoryDetail) CategoryResponse {
	resp := CategoryResponse{
		ID:          d.ID,
		UserID:      d.UserID,
		Name:        d.Name,
		Description: d.Description,
		Color:       d.Color,
		ParentID:    d.ParentID,
		SortOrder:   d.SortOrder,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		PromptCount: d.PromptCount,
		Children:    []CategoryChildResponse{},
	}
	if d.Parent != nil {
		resp.Parent = &CategoryRefResponse{ID: d.Parent.ID, Name: d.Parent.Name, Color: d.Parent.Color}
	}
	for _, child := range d.Children {
		resp.Children = append(resp.Children, CategoryChildResponse{
			ID:          child.ID,
			Name:        child.Name,
			Color:       child.Color,
			Description: child.Description,
		})
	}
	for _, p := range d.RecentPrompts {
		resp.Prompts = append(resp.Prompts, CategoryPromptResponse{ID: p.ID, Title: p.Title, CreatedAt: p.CreatedAt})
	}
	return resp
}

// NewCategoryResponses shapes a listing.
func NewCategoryResponses(details []domain.CategoryDetail) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(details))
	for i := range details {
		out = append(out, NewCategoryResponse(&details[i]))
	}
	return out
}
