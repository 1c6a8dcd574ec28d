package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hairizuan-noorazman/automation-bridge/credential"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// CredentialHandler handles credential-related requests. Secrets are
// write-only: they are accepted on create and never returned.
type CredentialHandler struct {
	credentialStore credential.Store
	masterKey       []byte
	logger          logger.Logger
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(credentialStore credential.Store, masterKey []byte, log logger.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentialStore: credentialStore,
		masterKey:       masterKey,
		logger:          log,
	}
}

// CreateCredentialRequest represents a credential creation request. Secrets
// is a flat map, e.g. {"api_key": "..."} for an engine credential or
// {"token": "...", "repository": "owner/repo"} for an issue tracker.
type CreateCredentialRequest struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Secrets map[string]string `json:"secrets"`
}

// CredentialListItem represents a credential in list responses (no secret).
type CredentialListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CredentialListResponse is the response for listing credentials.
type CredentialListResponse struct {
	Credentials []CredentialListItem `json:"credentials"`
	Total       int                  `json:"total"`
}

// Create handles creating a new credential.
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "credential name is required")
		return
	}

	kind := credential.Kind(req.Kind)
	if !kind.IsValid() {
		respondError(w, http.StatusBadRequest,
			"invalid kind: must be engine, issue_tracker, or webhook")
		return
	}

	if len(req.Secrets) == 0 {
		respondError(w, http.StatusBadRequest, "at least one secret is required")
		return
	}
	if kind == credential.KindEngine && req.Secrets[credential.SecretAPIKey] == "" {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("engine credentials require a %q secret", credential.SecretAPIKey))
		return
	}

	encrypted, err := credential.EncryptCredentials(h.masterKey, req.Secrets)
	if err != nil {
		h.logger.Error(r.Context(), "failed to encrypt credential", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to encrypt credential")
		return
	}

	cred := &credential.Credential{
		Name:            req.Name,
		Kind:            kind,
		EncryptedSecret: encrypted,
		IsActive:        true,
	}

	if err := h.credentialStore.Create(r.Context(), cred); err != nil {
		if errors.Is(err, credential.ErrDuplicateName) {
			respondError(w, http.StatusConflict,
				fmt.Sprintf("credential %q already exists", req.Name))
			return
		}
		h.logger.Error(r.Context(), "failed to create credential", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create credential")
		return
	}

	respondJSON(w, http.StatusCreated, CredentialListItem{
		ID:        cred.ID.String(),
		Name:      cred.Name,
		Kind:      string(cred.Kind),
		IsActive:  cred.IsActive,
		CreatedAt: cred.CreatedAt.Format(time.RFC3339),
		UpdatedAt: cred.UpdatedAt.Format(time.RFC3339),
	})
}

// List handles listing all credentials, metadata only.
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentialStore.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list credentials", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list credentials")
		return
	}

	items := make([]CredentialListItem, len(creds))
	for i, c := range creds {
		items[i] = CredentialListItem{
			ID:        c.ID.String(),
			Name:      c.Name,
			Kind:      string(c.Kind),
			IsActive:  c.IsActive,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
			UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
		}
	}

	respondJSON(w, http.StatusOK, CredentialListResponse{
		Credentials: items,
		Total:       len(items),
	})
}

// Delete handles deleting a credential by name.
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		respondError(w, http.StatusBadRequest, "credential name is required")
		return
	}

	if err := h.credentialStore.Delete(r.Context(), name); err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			respondError(w, http.StatusNotFound, "credential not found")
			return
		}
		h.logger.Error(r.Context(), "failed to delete credential", map[string]interface{}{
			"error": err.Error(),
			"name":  name,
		})
		respondError(w, http.StatusInternalServerError, "failed to delete credential")
		return
	}

	respondSuccess(w, "credential deleted successfully")
}
