// internal/core/list_params.go
package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default and limit constants for prompt listing pagination
const (
	DefaultPage      = 1
	DefaultPageSize  = 20
	MaxPageSize      = 100
	DefaultSortOrder = "desc"
)

// sortColumns maps API sort keys to SQL columns. Anything outside this map
// falls back to creation time, never into the query string.
var sortColumns = map[string]string{
	"createdAt":  "p.created_at",
	"title":      "p.title",
	"usageCount": "p.usage_count",
	"lastUsedAt": "p.last_used_at",
}

// PromptListOptions holds parsed query parameters for the prompt listing.
type PromptListOptions struct {
	// Pagination
	Page     int
	PageSize int

	// Free-text search over title/content/description (OR semantics)
	Search string

	// Filters
	CategoryID   *int64   // nil = all categories ("all" and absence are equivalent)
	TagNames     []string // union match: any association to any listed name
	FavoriteOnly bool

	// Sorting
	SortColumn string // validated SQL column
	SortOrder  string // "asc" or "desc"
}

// Offset converts page/pageSize into a row offset.
func (o *PromptListOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}

// ParsePromptListOptions extracts pagination, search, filter and sorting
// options from query parameters. Returns a validation error for malformed
// numeric parameters.
func ParsePromptListOptions(queryParams url.Values) (*PromptListOptions, error) {
	opts := &PromptListOptions{
		Page:       DefaultPage,
		PageSize:   DefaultPageSize,
		SortColumn: sortColumns["createdAt"],
		SortOrder:  DefaultSortOrder,
	}

	// Parse page
	if pageStr := queryParams.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid 'page' parameter: must be a positive integer")
		}
		opts.Page = page
	}

	// Parse pageSize
	if sizeStr := queryParams.Get("pageSize"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			return nil, fmt.Errorf("invalid 'pageSize' parameter: must be a positive integer")
		}
		if size > MaxPageSize {
			return nil, fmt.Errorf("invalid 'pageSize' parameter: maximum is %d", MaxPageSize)
		}
		opts.PageSize = size
	}

	opts.Search = strings.TrimSpace(queryParams.Get("search"))

	// Category filter; the client sends "all" for no filter
	if catStr := queryParams.Get("categoryId"); catStr != "" && catStr != "all" {
		catID, err := strconv.ParseInt(catStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid 'categoryId' parameter: must be an integer")
		}
		opts.CategoryID = &catID
	}

	// Tag filter: comma-separated names, blanks dropped
	if tagsStr := queryParams.Get("tags"); tagsStr != "" {
		for _, name := range strings.Split(tagsStr, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				opts.TagNames = append(opts.TagNames, name)
			}
		}
	}

	opts.FavoriteOnly = queryParams.Get("isFavorite") == "true"

	// Parse sort column
	if sortBy := queryParams.Get("sortBy"); sortBy != "" {
		if col, ok := sortColumns[sortBy]; ok {
			opts.SortColumn = col
		}
	}

	// Parse sort order
	if order := queryParams.Get("sortOrder"); order != "" {
		lowerOrder := strings.ToLower(order)
		if lowerOrder != "asc" && lowerOrder != "desc" {
			return nil, fmt.Errorf("invalid 'sortOrder' parameter: must be 'asc' or 'desc'")
		}
		opts.SortOrder = lowerOrder
	}

	return opts, nil
}
