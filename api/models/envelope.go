// api/models/envelope.go
package models

import "github.com/gin-gonic/gin"

// Error codes surfaced to API clients. The client switches on these, so the
// strings are part of the contract.
const (
	CodeMissingFields      = "MISSING_FIELDS"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeNoToken            = "NO_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidID          = "INVALID_ID"
	CodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	CodeParentNotFound     = "PARENT_NOT_FOUND"
	CodeNameExists         = "NAME_EXISTS"
	CodeCircularReference  = "CIRCULAR_REFERENCE"
	CodeHasChildren        = "HAS_CHILDREN"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeTagNotFound        = "TAG_NOT_FOUND"
	CodeDuplicateNames     = "DUPLICATE_NAMES"
	CodeAllExists          = "ALL_EXISTS"
	CodePromptNotFound     = "PROMPT_NOT_FOUND"
	CodeInvalidData        = "INVALID_DATA"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"` // development only
}

// Pagination describes an offset-based page of results.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Meta carries side-channel response information, currently only pagination.
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Envelope is the uniform response wrapper every endpoint returns.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// RespondOK writes a 200 envelope.
func RespondOK(c *gin.Context, data any, message string) {
	c.JSON(200, Envelope{Success: true, Data: data, Message: message})
}

// RespondCreated writes a 201 envelope.
func RespondCreated(c *gin.Context, data any, message string) {
	c.JSON(201, Envelope{Success: true, Data: data, Message: message})
}

// RespondPage writes a 200 envelope with pagination meta.
func RespondPage(c *gin.Context, data any, p Pagination) {
	c.JSON(200, Envelope{Success: true, Data: data, Meta: &Meta{Pagination: &p}})
}

// RespondError writes a failure envelope and aborts the handler chain.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}
