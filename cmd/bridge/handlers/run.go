package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/batch"
	"github.com/hairizuan-noorazman/automation-bridge/credential"
	"github.com/hairizuan-noorazman/automation-bridge/dispatch"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/run"
	"github.com/hairizuan-noorazman/automation-bridge/storage"
)

// RunHandler handles run-related requests.
type RunHandler struct {
	runStore        run.Store
	itemStore       run.ItemStore
	assetStore      run.AssetStore
	credentialStore credential.Store
	blobStorage     storage.BlobStorage
	workerPool      *dispatch.WorkerPool
	logger          logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(runStore run.Store, itemStore run.ItemStore, assetStore run.AssetStore, credentialStore credential.Store, blobs storage.BlobStorage, pool *dispatch.WorkerPool, log logger.Logger) *RunHandler {
	return &RunHandler{
		runStore:        runStore,
		itemStore:       itemStore,
		assetStore:      assetStore,
		credentialStore: credentialStore,
		blobStorage:     blobs,
		workerPool:      pool,
		logger:          log,
	}
}

// SubmitItemRequest is one inbound batch item. Commands are newline-separated
// text; the schema is raw JSON text.
type SubmitItemRequest struct {
	Operation string              `json:"operation"`
	URL       string              `json:"url,omitempty"`
	Commands  string              `json:"commands,omitempty"`
	Schema    string              `json:"schema,omitempty"`
	Headless  *bool               `json:"headless,omitempty"`
	Timeout   int                 `json:"timeout,omitempty"`
	Options   *automation.Options `json:"options,omitempty"`
}

// SubmitRunRequest represents a run submission.
type SubmitRunRequest struct {
	Policy     string              `json:"policy,omitempty"`
	Credential string              `json:"credential,omitempty"`
	Items      []SubmitItemRequest `json:"items"`
}

// ListItemsResponse represents a run's ordered items.
type ListItemsResponse struct {
	Items []*run.Item `json:"items"`
	Total int         `json:"total"`
}

// ItemValidationError names one rejected submission field.
type ItemValidationError struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationErrorResponse rejects a whole submission with per-item messages.
type ValidationErrorResponse struct {
	Error   string                `json:"error"`
	Details []ItemValidationError `json:"details"`
}

// BuildRequest converts one inbound item into a validated automation request.
func (sr SubmitItemRequest) BuildRequest() (*automation.Request, error) {
	headless := true
	if sr.Headless != nil {
		headless = *sr.Headless
	}

	opts := automation.DefaultOptions()
	if sr.Options != nil {
		opts = *sr.Options
	}

	return automation.NewRequest(sr.Operation, sr.URL, sr.Commands, sr.Schema, headless, sr.Timeout, opts)
}

// ValidateItems validates every submitted item up front. A single bad item
// rejects the whole submission; nothing is persisted before this passes.
// The run subcommand shares it so the local path and the API accept the
// same record shape.
func ValidateItems(items []SubmitItemRequest) ([]*automation.Request, []ItemValidationError) {
	requests := make([]*automation.Request, 0, len(items))
	var details []ItemValidationError

	for i, item := range items {
		req, err := item.BuildRequest()
		if err != nil {
			detail := ItemValidationError{Index: i, Message: err.Error()}

			var validationErr *automation.ValidationError
			var schemaErr *automation.SchemaParseError
			if errors.As(err, &validationErr) {
				detail.Field = validationErr.Field
				detail.Message = validationErr.Reason
			} else if errors.As(err, &schemaErr) {
				detail.Field = "schema"
			}

			details = append(details, detail)
			continue
		}
		requests = append(requests, req)
	}

	if len(details) > 0 {
		return nil, details
	}
	return requests, nil
}

// Submit handles submitting a new run.
func (h *RunHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRunRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	policy := batch.PolicyContinue
	if req.Policy != "" {
		policy = batch.Policy(req.Policy)
		if !policy.IsValid() {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid policy %q: must be continue or fail_fast", req.Policy))
			return
		}
	}

	// Verify the referenced engine credential before accepting the run
	if req.Credential != "" {
		cred, err := h.credentialStore.GetByName(r.Context(), req.Credential)
		if err != nil {
			if errors.Is(err, credential.ErrCredentialNotFound) {
				respondError(w, http.StatusBadRequest,
					fmt.Sprintf("unknown engine credential %q", req.Credential))
				return
			}
			h.logger.Error(r.Context(), "failed to verify credential", map[string]interface{}{
				"error": err.Error(),
			})
			respondError(w, http.StatusInternalServerError, "failed to verify credential")
			return
		}
		if cred.Kind != credential.KindEngine {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("credential %q is not an engine credential", req.Credential))
			return
		}
	}

	requests, details := ValidateItems(req.Items)
	if details != nil {
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
		return
	}

	newRun := &run.Run{
		Status:         run.StatusPending,
		Policy:         policy,
		CredentialName: req.Credential,
		TotalItems:     len(requests),
	}
	if err := h.runStore.Create(r.Context(), newRun); err != nil {
		h.logger.Error(r.Context(), "failed to create run", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	items := make([]*run.Item, 0, len(requests))
	for i, request := range requests {
		item, err := run.NewItem(newRun.ID, i, request)
		if err != nil {
			h.logger.Error(r.Context(), "failed to snapshot item", map[string]interface{}{
				"error":  err.Error(),
				"run_id": newRun.ID,
				"index":  i,
			})
			respondError(w, http.StatusInternalServerError, "failed to create run items")
			return
		}
		items = append(items, item)
	}

	if err := h.itemStore.CreateBatch(r.Context(), items); err != nil {
		h.logger.Error(r.Context(), "failed to create run items", map[string]interface{}{
			"error":  err.Error(),
			"run_id": newRun.ID,
		})
		respondError(w, http.StatusInternalServerError, "failed to create run items")
		return
	}

	// Notify the worker pool that a new run is waiting
	if h.workerPool != nil {
		h.workerPool.Notify()
	}

	respondJSON(w, http.StatusCreated, newRun)
}

// List handles listing runs, newest first.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	statusStr := r.URL.Query().Get("status")
	if statusStr != "" {
		status := run.Status(statusStr)
		if !status.IsValid() {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", statusStr))
			return
		}

		total, err := h.runStore.CountByStatus(r.Context(), status)
		if err != nil {
			h.logger.Error(r.Context(), "failed to count runs", map[string]interface{}{
				"error": err.Error(),
			})
			respondError(w, http.StatusInternalServerError, "failed to count runs")
			return
		}

		runs, err := h.runStore.ListByStatus(r.Context(), status, limit, offset)
		if err != nil {
			h.logger.Error(r.Context(), "failed to list runs", map[string]interface{}{
				"error": err.Error(),
			})
			respondError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}

		respondJSON(w, http.StatusOK, NewPaginatedResponse(runs, total, limit, offset))
		return
	}

	total, err := h.runStore.Count(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to count runs", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to count runs")
		return
	}

	runs, err := h.runStore.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(runs, total, limit, offset))
}

// GetByID handles getting a single run by ID.
func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "run")
	if !ok {
		return
	}

	theRun, err := h.runStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, theRun)
}

// ListItems handles listing a run's items in submission order.
func (h *RunHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "run")
	if !ok {
		return
	}

	if _, err := h.runStore.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	items, err := h.itemStore.ListByRun(r.Context(), id)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list run items", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to list run items")
		return
	}

	respondJSON(w, http.StatusOK, ListItemsResponse{
		Items: items,
		Total: len(items),
	})
}

// GetScreenshot serves one archived screenshot, either by redirecting to a
// presigned URL or by streaming the blob.
func (h *RunHandler) GetScreenshot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "run")
	if !ok {
		return
	}
	index, ok := parseIntOrRespond(w, r, "index")
	if !ok {
		return
	}
	n, ok := parseIntOrRespond(w, r, "n")
	if !ok {
		return
	}

	items, err := h.itemStore.ListByRun(r.Context(), id)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list run items", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to list run items")
		return
	}

	var item *run.Item
	for _, candidate := range items {
		if candidate.ItemIndex == index {
			item = candidate
			break
		}
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "run item not found")
		return
	}

	key := storage.ScreenshotKey(id, index, n)

	assets, err := h.assetStore.ListByItem(r.Context(), item.ID)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list item assets", map[string]interface{}{
			"error":   err.Error(),
			"item_id": item.ID,
		})
		respondError(w, http.StatusInternalServerError, "failed to list item assets")
		return
	}

	var asset *run.Asset
	for _, candidate := range assets {
		if candidate.BlobKey == key {
			asset = candidate
			break
		}
	}
	if asset == nil {
		respondError(w, http.StatusNotFound, "screenshot not found")
		return
	}

	// Presigned storage hands back an HTTP URL; local storage a filesystem
	// path the client cannot reach, so stream instead.
	blobURL, err := h.blobStorage.GetURL(r.Context(), key)
	if err == nil && strings.HasPrefix(blobURL, "http") {
		http.Redirect(w, r, blobURL, http.StatusFound)
		return
	}

	reader, err := h.blobStorage.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			respondError(w, http.StatusNotFound, "file not found in storage")
			return
		}
		h.logger.Error(r.Context(), "failed to download screenshot", map[string]interface{}{
			"error": err.Error(),
			"key":   key,
		})
		respondError(w, http.StatusInternalServerError, "failed to download screenshot")
		return
	}
	defer reader.Close()

	mimeType := asset.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	w.Header().Set("Content-Type", mimeType)
	if asset.FileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", asset.FileName))
	}
	if asset.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.FileSize, 10))
	}

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error(r.Context(), "failed to stream screenshot", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
