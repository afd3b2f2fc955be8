// internal/domain/models.go
package domain

import "time"

// User defines the structure for user rows in the DB.
// Email is stored lower-cased; a non-nil DeletedAt hides the account
// from login and token authentication without removing the row.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    *string
	Settings     string // JSON text, parsed only at the API boundary
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category is a user-owned node in a tree of prompt folders.
// ParentID is nil for root categories.
type Category struct {
	ID          int64
	UserID      int64
	Name        string
	Description *string
	Color       string
	ParentID    *int64
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryRef is the compact parent summary embedded in listings.
type CategoryRef struct {
	ID    int64
	Name  string
	Color string
}

// CategoryChild is the child summary embedded in listings, ordered by sort order.
type CategoryChild struct {
	ID          int64
	Name        string
	Color       string
	Description *string
}

// CategoryDetail is a category hydrated with its immediate relatives and
// the count of non-deleted prompts assigned to it.
type CategoryDetail struct {
	Category
	Parent        *CategoryRef
	Children      []CategoryChild
	PromptCount   int64
	RecentPrompts []PromptRef // populated only on single-category reads
}

// Tag labels prompts; (UserID, Name) is unique.
type Tag struct {
	ID        int64
	UserID    int64
	Name      string
	Color     string
	CreatedAt time.Time
}

// TagWithCount carries the number of prompt associations alongside the tag.
type TagWithCount struct {
	Tag
	PromptCount int64
}

// TagDetail adds the most recently associated non-deleted prompts.
type TagDetail struct {
	TagWithCount
	Prompts []TagPrompt
}

// TagPrompt is the prompt summary shown on a tag detail view.
type TagPrompt struct {
	ID          int64
	Title       string
	Description *string
	UsageCount  int64
	IsFavorite  bool
	CreatedAt   time.Time
}

// PromptVariable describes one {{placeholder}} a prompt template declares.
// The server stores the definitions verbatim; only the client interprets them.
type PromptVariable struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean or text
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Prompt is the central entity: a reusable text template owned by one user,
// assigned to at most one category, tagged many-to-many, soft-deleted via
// DeletedAt and versioned append-only through PromptVersion.
type Prompt struct {
	ID          int64
	UserID      int64
	Title       string
	Content     string
	Description *string
	CategoryID  *int64
	Variables   string // JSON array text
	Metadata    string // JSON object text
	IsFavorite  bool
	IsPublic    bool
	UsageCount  int64
	LastUsedAt  *time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PromptRef is the minimal prompt summary used in category detail views.
type PromptRef struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// PromptDetail is a prompt hydrated with its category summary, tags and
// (on single reads) the latest version summaries.
type PromptDetail struct {
	Prompt
	Category *CategoryRef
	Tags     []Tag
	Versions []PromptVersionSummary
}

// PromptVersion is an immutable snapshot of a prompt's content at a point
// in time. VersionNumber starts at 1 and is computed as max(existing)+1.
type PromptVersion struct {
	ID            int64
	PromptID      int64
	VersionNumber int
	Title         string
	Content       string
	Description   *string
	Variables     string
	ChangeLog     *string
	CreatedBy     int64
	CreatedAt     time.Time
}

// PromptVersionSummary omits the snapshot body to keep detail payloads bounded.
type PromptVersionSummary struct {
	ID            int64
	VersionNumber int
	Title         string
	ChangeLog     *string
	CreatedAt     time.Time
}
