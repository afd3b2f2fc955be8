// api/models/json_columns.go
package models

import (
	"encoding/json"

	"github.com/promptvault/promptvault-backend/internal/domain"
)

// The store keeps prompt variables, prompt metadata and user settings as
// serialized text. All (de)serialization of those columns happens here so the
// parse/stringify boundary exists in exactly one place.

// MarshalVariables serializes variable definitions for storage.
// A nil slice serializes to the empty array, never to JSON null.
func MarshalVariables(vars []domain.PromptVariable) string {
	if vars == nil {
		vars = []domain.PromptVariable{}
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// UnmarshalVariables parses a stored variables column, tolerating legacy or
// corrupt text by falling back to the empty list.
func UnmarshalVariables(raw string) []domain.PromptVariable {
	if raw == "" {
		return []domain.PromptVariable{}
	}
	var vars []domain.PromptVariable
	if err := json.Unmarshal([]byte(raw), &vars); err != nil || vars == nil {
		return []domain.PromptVariable{}
	}
	return vars
}

// MarshalObject serializes a metadata/settings object for storage.
func MarshalObject(obj map[string]any) string {
	if obj == nil {
		obj = map[string]any{}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// UnmarshalObject parses a stored metadata/settings column.
func UnmarshalObject(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}
