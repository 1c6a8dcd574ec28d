package main

import (
	"time"

	"github.com/google/uuid"
)

// PaginatedResponse matches handlers.PaginatedResponse.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse matches handlers.SuccessResponse.
type SuccessResponse struct {
	Message string `json:"message"`
}

// SubmitItemRequest matches handlers.SubmitItemRequest. Commands are
// newline-separated text; the schema is raw JSON text.
type SubmitItemRequest struct {
	Operation string `json:"operation"`
	URL       string `json:"url,omitempty"`
	Commands  string `json:"commands,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Headless  *bool  `json:"headless,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}

// SubmitRunRequest matches handlers.SubmitRunRequest.
type SubmitRunRequest struct {
	Policy     string              `json:"policy,omitempty"`
	Credential string              `json:"credential,omitempty"`
	Items      []SubmitItemRequest `json:"items"`
}

// RunResponse is used for deserializing run responses.
type RunResponse struct {
	ID             uuid.UUID  `json:"id"`
	Status         string     `json:"status"`
	Policy         string     `json:"policy"`
	CredentialName string     `json:"credential_name,omitempty"`
	TotalItems     int        `json:"total_items"`
	CompletedItems int        `json:"completed_items"`
	FailedItems    int        `json:"failed_items"`
	IssueURL       string     `json:"issue_url,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RunItemResponse is used for deserializing run item responses.
type RunItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	RunID          uuid.UUID  `json:"run_id"`
	Index          int        `json:"index"`
	Operation      string     `json:"operation"`
	URL            string     `json:"url,omitempty"`
	Commands       []string   `json:"commands,omitempty"`
	Status         string     `json:"status"`
	FailureKind    string     `json:"failure_kind,omitempty"`
	FailureMessage string     `json:"failure_message,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DurationMS     *int64     `json:"duration_ms,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ListItemsResponse matches handlers.ListItemsResponse.
type ListItemsResponse struct {
	Items []RunItemResponse `json:"items"`
	Total int               `json:"total"`
}

// DraftCommandsRequest matches handlers.DraftCommandsRequest.
type DraftCommandsRequest struct {
	Goal string `json:"goal"`
	URL  string `json:"url,omitempty"`
}

// DraftResponse is used for deserializing command draft responses.
type DraftResponse struct {
	ID           uuid.UUID `json:"id"`
	Goal         string    `json:"goal"`
	TargetURL    string    `json:"target_url,omitempty"`
	ModelID      string    `json:"model_id"`
	Commands     []string  `json:"commands,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateTokenRequest matches handlers.CreateTokenRequest.
type CreateTokenRequest struct {
	Name           string `json:"name"`
	Scope          string `json:"scope"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// CreateTokenResponse matches handlers.CreateTokenResponse.
type CreateTokenResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// TokenListItem matches handlers.TokenListItem.
type TokenListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	ExpiresAt string `json:"expires_at"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// TokenListResponse matches handlers.TokenListResponse.
type TokenListResponse struct {
	Tokens []TokenListItem `json:"tokens"`
	Total  int             `json:"total"`
}

// CreateCredentialRequest matches handlers.CreateCredentialRequest.
type CreateCredentialRequest struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Secrets map[string]string `json:"secrets"`
}

// CredentialListItem matches handlers.CredentialListItem.
type CredentialListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CredentialListResponse matches handlers.CredentialListResponse.
type CredentialListResponse struct {
	Credentials []CredentialListItem `json:"credentials"`
	Total       int                  `json:"total"`
}
