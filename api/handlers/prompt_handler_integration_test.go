// api/handlers/prompt_handler_integration_test.go
package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/internal/domain"
	"github.com/promptvault/promptvault-backend/internal/storage"
)

// createTestPrompt creates a prompt via the API and returns its response.
func createTestPrompt(t *testing.T, server *httptest.Server, token string, req models.CreatePromptRequest) models.PromptResponse {
	t.Helper()

	status, env := doRequest(t, server, http.MethodPost, "/api/prompts", token, req)
	require.Equal(t, http.StatusCreated, status, "prompt creation should succeed: %+v", env.Error)

	var prompt models.PromptResponse
	require.NoError(t, json.Unmarshal(env.Data, &prompt))
	return prompt
}

func TestPromptCRUD(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	token := registerTestUser(t, server, uniqueName("prompt.user"))

	t.Run("Create With Variables And Tags", func(t *testing.T) {
		tag := createTestTag(t, server, token, models.CreateTagRequest{Name: "wired"})
		prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{
			Title:   "Summarizer",
			Content: "Summarize {{text}} in {{tone}} tone",
			Variables: []domain.PromptVariable{
				{Name: "text", Type: "string", Required: true},
				{Name: "tone", Type: "string", Default: "neutral"},
			},
			Metadata: map[string]any{"model": "any"},
			Tags:     []int64{tag.ID},
		})

		assert.Len(prompt.Variables, 2)
		assert.Equal("text", prompt.Variables[0].Name)
		assert.Equal("any", prompt.Metadata["model"])
		require.Len(t, prompt.Tags, 1)
		assert.Equal("wired", prompt.Tags[0].Name)
		require.Len(t, prompt.Versions, 1, "creation must record version 1")
		assert.Equal(1, prompt.Versions[0].VersionNumber)
	})

	t.Run("Create Requires Title And Content", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodPost, "/api/prompts", token,
			models.CreatePromptRequest{Title: "No Content"})
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal(models.CodeMissingFields, env.Error.Code)

		status, env = doRequest(t, server, http.MethodPost, "/api/prompts", token,
			map[string]string{"title": "   ", "content": "body"})
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal(models.CodeMissingFields, env.Error.Code)
	})

	t.Run("Create With Missing Category", func(t *testing.T) {
		missing := int64(99999)
		status, env := doRequest(t, server, http.MethodPost, "/api/prompts", token,
			models.CreatePromptRequest{Title: "Lost", Content: "x", CategoryID: &missing})
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal(models.CodeCategoryNotFound, env.Error.Code)
	})

	t.Run("Tag Set Replacement On Update", func(t *testing.T) {
		keep := createTestTag(t, server, token, models.CreateTagRequest{Name: "keep"})
		drop := createTestTag(t, server, token, models.CreateTagRequest{Name: "drop"})
		prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{
			Title: "Retagged", Content: "x", Tags: []int64{drop.ID},
		})

		newTags := []int64{keep.ID}
		status, env := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{Tags: &newTags})
		assert.Equal(http.StatusOK, status)

		var got models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		require.Len(t, got.Tags, 1)
		assert.Equal("keep", got.Tags[0].Name)

		// An explicit empty slice clears the set; omitting tags leaves it alone
		empty := []int64{}
		status, env = doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{Tags: &empty})
		assert.Equal(http.StatusOK, status)
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Empty(got.Tags)
	})

	t.Run("Explicit Null Clears Category", func(t *testing.T) {
		cat := createTestCategory(t, server, token, models.CreateCategoryRequest{Name: "Disposable Home"})
		prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{
			Title: "Homeless Soon", Content: "x", CategoryID: &cat.ID,
		})
		require.NotNil(t, prompt.CategoryID)

		status, env := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{CategoryID: nullID()})
		assert.Equal(http.StatusOK, status)

		var got models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Nil(got.CategoryID, "null categoryId should un-categorize the prompt")
	})

	t.Run("Whitespace Is Trimmed On Write", func(t *testing.T) {
		desc := "  padded description  "
		prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{
			Title: "  Padded Title  ", Content: "  padded body  ", Description: &desc,
		})
		assert.Equal("Padded Title", prompt.Title)
		assert.Equal("padded body", prompt.Content)
		require.NotNil(t, prompt.Description)
		assert.Equal("padded description", *prompt.Description)

		content := "  edited body  "
		status, env := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{Content: &content})
		assert.Equal(http.StatusOK, status)

		var got models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal("edited body", got.Content)
	})

	t.Run("Favorite Flag Round Trip", func(t *testing.T) {
		prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{Title: "Fav", Content: "x"})

		fav := true
		status, env := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{IsFavorite: &fav})
		assert.Equal(http.StatusOK, status)

		var got models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.True(got.IsFavorite)
	})
}

func TestPromptVersioning(t *testing.T) {
	server, db, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	token := registerTestUser(t, server, uniqueName("version.user"))

	prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{Title: "Versioned", Content: "v1 body"})
	require.Len(t, prompt.Versions, 1)

	getVersions := func() []models.PromptVersionResponse {
		_, env := doRequest(t, server, http.MethodGet, fmt.Sprintf("/api/prompts/%d", prompt.ID), token, nil)
		var got models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		return got.Versions
	}

	t.Run("Description Only Edit Records No Version", func(t *testing.T) {
		desc := "just a description"
		status, _ := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{Description: &desc})
		assert.Equal(http.StatusOK, status)
		assert.Len(getVersions(), 1, "metadata-only edits must not version")
	})

	t.Run("Content Edit Records Next Version", func(t *testing.T) {
		content := "v2 body"
		status, _ := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{Content: &content})
		assert.Equal(http.StatusOK, status)

		versions := getVersions()
		require.Len(t, versions, 2)
		// Newest first
		assert.Equal(2, versions[0].VersionNumber)
		assert.Equal(1, versions[1].VersionNumber)
	})

	t.Run("Title Edit Also Versions", func(t *testing.T) {
		title := "Versioned Anew"
		status, _ := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", prompt.ID), token,
			models.UpdatePromptRequest{Title: &title})
		assert.Equal(http.StatusOK, status)
		assert.Len(getVersions(), 3)

		// Direct store check: the table holds the full history, not just the
		// bounded slice the API returns
		count, err := storage.CountPromptVersions(context.Background(), db, prompt.ID)
		require.NoError(t, err)
		assert.Equal(int64(3), count)
	})
}

func TestPromptSoftDelete(t *testing.T) {
	server, db, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	token := registerTestUser(t, server, uniqueName("softdel.user"))

	prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{Title: "Short Lived", Content: "x"})

	status, _ := doRequest(t, server, http.MethodDelete, fmt.Sprintf("/api/prompts/%d", prompt.ID), token, nil)
	assert.Equal(http.StatusOK, status)

	t.Run("Gone From Detail", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodGet, fmt.Sprintf("/api/prompts/%d", prompt.ID), token, nil)
		assert.Equal(http.StatusNotFound, status)
		assert.Equal(models.CodePromptNotFound, env.Error.Code)
	})

	t.Run("Gone From Listing", func(t *testing.T) {
		_, env := doRequest(t, server, http.MethodGet, "/api/prompts", token, nil)
		var prompts []models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &prompts))
		for _, p := range prompts {
			assert.NotEqual(prompt.ID, p.ID, "soft-deleted prompt must not be listed")
		}
	})

	t.Run("Second Delete Is Not Found", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodDelete, fmt.Sprintf("/api/prompts/%d", prompt.ID), token, nil)
		assert.Equal(http.StatusNotFound, status)
		assert.Equal(models.CodePromptNotFound, env.Error.Code)
	})

	t.Run("Row Survives In The Store", func(t *testing.T) {
		var count int
		err := db.QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM prompts WHERE id = ? AND deleted_at IS NOT NULL`, prompt.ID).Scan(&count)
		require.NoError(t, err)
		assert.Equal(1, count, "soft delete must keep the row")
	})
}

func TestPromptUsageTracking(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	token := registerTestUser(t, server, uniqueName("usage.user"))

	prompt := createTestPrompt(t, server, token, models.CreatePromptRequest{Title: "Counted", Content: "x"})
	assert.Equal(int64(0), prompt.UsageCount)
	assert.Nil(prompt.LastUsedAt)

	var got models.PromptResponse
	for i := 1; i <= 3; i++ {
		status, env := doRequest(t, server, http.MethodPost, fmt.Sprintf("/api/prompts/%d/use", prompt.ID), token, nil)
		assert.Equal(http.StatusOK, status)
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(int64(i), got.UsageCount)
	}
	assert.NotNil(got.LastUsedAt, "use must stamp lastUsedAt")
}

func TestPromptCopy(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	token := registerTestUser(t, server, uniqueName("copy.user"))

	tag := createTestTag(t, server, token, models.CreateTagRequest{Name: "carried"})
	original := createTestPrompt(t, server, token, models.CreatePromptRequest{
		Title: "Blueprint", Content: "source body", Tags: []int64{tag.ID},
	})

	// Bump the original's counter so the copy's reset is observable
	doRequest(t, server, http.MethodPost, fmt.Sprintf("/api/prompts/%d/use", original.ID), token, nil)

	status, env := doRequest(t, server, http.MethodPost, fmt.Sprintf("/api/prompts/%d/copy", original.ID), token, nil)
	assert.Equal(http.StatusCreated, status)

	var copied models.PromptResponse
	require.NoError(t, json.Unmarshal(env.Data, &copied))

	t.Run("Copy Shape", func(t *testing.T) {
		assert.Equal("Blueprint (copy)", copied.Title)
		assert.Equal("source body", copied.Content)
		assert.Equal(int64(0), copied.UsageCount, "copy starts with a fresh counter")
		require.Len(t, copied.Tags, 1)
		assert.Equal("carried", copied.Tags[0].Name)
		assert.NotEqual(original.ID, copied.ID)
	})

	t.Run("Copy Is Independent", func(t *testing.T) {
		content := "diverged"
		status, _ := doRequest(t, server, http.MethodPut, fmt.Sprintf("/api/prompts/%d", copied.ID), token,
			models.UpdatePromptRequest{Content: &content})
		assert.Equal(http.StatusOK, status)

		_, env := doRequest(t, server, http.MethodGet, fmt.Sprintf("/api/prompts/%d", original.ID), token, nil)
		var got models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal("source body", got.Content, "editing the copy must not touch the original")
	})
}

func TestPromptListFilters(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	token := registerTestUser(t, server, uniqueName("filter.user"))

	work := createTestCategory(t, server, token, models.CreateCategoryRequest{Name: "Work"})
	urgent := createTestTag(t, server, token, models.CreateTagRequest{Name: "urgent"})

	createTestPrompt(t, server, token, models.CreatePromptRequest{
		Title: "Meeting notes template", Content: "agenda", CategoryID: &work.ID,
	})
	createTestPrompt(t, server, token, models.CreatePromptRequest{
		Title: "Incident report", Content: "details", Tags: []int64{urgent.ID},
	})
	createTestPrompt(t, server, token, models.CreatePromptRequest{
		Title: "Grocery list", Content: "milk and agenda items",
	})

	listTitles := func(query string) []string {
		status, env := doRequest(t, server, http.MethodGet, "/api/prompts"+query, token, nil)
		require.Equal(t, http.StatusOK, status)
		var prompts []models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &prompts))
		titles := make([]string, 0, len(prompts))
		for _, p := range prompts {
			titles = append(titles, p.Title)
		}
		return titles
	}

	t.Run("Search Matches Title And Content", func(t *testing.T) {
		titles := listTitles("?search=agenda")
		assert.Len(titles, 2)
		assert.Contains(titles, "Meeting notes template")
		assert.Contains(titles, "Grocery list")
	})

	t.Run("Category Filter", func(t *testing.T) {
		titles := listTitles(fmt.Sprintf("?categoryId=%d", work.ID))
		assert.Equal([]string{"Meeting notes template"}, titles)
	})

	t.Run("Tag Filter", func(t *testing.T) {
		titles := listTitles("?tags=urgent")
		assert.Equal([]string{"Incident report"}, titles)
	})

	t.Run("Pagination Meta", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodGet, "/api/prompts?page=1&pageSize=2", token, nil)
		assert.Equal(http.StatusOK, status)
		require.NotNil(t, env.Meta)
		require.NotNil(t, env.Meta.Pagination)
		assert.Equal(int64(3), env.Meta.Pagination.Total)
		assert.Equal(2, env.Meta.Pagination.TotalPages)

		var prompts []models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &prompts))
		assert.Len(prompts, 2)
	})

	t.Run("Title Sort Ascending", func(t *testing.T) {
		titles := listTitles("?sortBy=title&sortOrder=asc")
		require.Len(t, titles, 3)
		assert.True(strings.Compare(titles[0], titles[1]) < 0)
		assert.True(strings.Compare(titles[1], titles[2]) < 0)
	})

	t.Run("Invalid Page Rejected", func(t *testing.T) {
		status, env := doRequest(t, server, http.MethodGet, "/api/prompts?page=0", token, nil)
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal(models.CodeInvalidData, env.Error.Code)
	})
}

// TestTenantIsolation verifies one user can never see or mutate another's rows.
func TestTenantIsolation(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)
	alice := registerTestUser(t, server, uniqueName("alice"))
	mallory := registerTestUser(t, server, uniqueName("mallory"))

	category := createTestCategory(t, server, alice, models.CreateCategoryRequest{Name: "Private"})
	tag := createTestTag(t, server, alice, models.CreateTagRequest{Name: "secret"})
	prompt := createTestPrompt(t, server, alice, models.CreatePromptRequest{Title: "Hidden", Content: "x"})

	cases := []struct {
		name   string
		method string
		path   string
		code   string
	}{
		{"Prompt Read", http.MethodGet, fmt.Sprintf("/api/prompts/%d", prompt.ID), models.CodePromptNotFound},
		{"Prompt Delete", http.MethodDelete, fmt.Sprintf("/api/prompts/%d", prompt.ID), models.CodePromptNotFound},
		{"Prompt Use", http.MethodPost, fmt.Sprintf("/api/prompts/%d/use", prompt.ID), models.CodePromptNotFound},
		{"Prompt Copy", http.MethodPost, fmt.Sprintf("/api/prompts/%d/copy", prompt.ID), models.CodePromptNotFound},
		{"Category Read", http.MethodGet, fmt.Sprintf("/api/categories/%d", category.ID), models.CodeCategoryNotFound},
		{"Category Delete", http.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), models.CodeCategoryNotFound},
		{"Tag Read", http.MethodGet, fmt.Sprintf("/api/tags/%d", tag.ID), models.CodeTagNotFound},
		{"Tag Delete", http.MethodDelete, fmt.Sprintf("/api/tags/%d", tag.ID), models.CodeTagNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := doRequest(t, server, tc.method, tc.path, mallory, nil)
			assert.Equal(http.StatusNotFound, status, "foreign rows must look nonexistent")
			assert.Equal(tc.code, env.Error.Code)
		})
	}

	t.Run("Listings Stay Separate", func(t *testing.T) {
		_, env := doRequest(t, server, http.MethodGet, "/api/prompts", mallory, nil)
		var prompts []models.PromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &prompts))
		assert.Empty(prompts, "another tenant's prompts must never leak")
	})
}
