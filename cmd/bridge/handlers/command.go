package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/hairizuan-noorazman/automation-bridge/commandgen"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// CommandHandler handles AI command drafting requests.
type CommandHandler struct {
	draftStore commandgen.Store
	generator  commandgen.Generator
	modelID    string
	limits     commandgen.Limits
	logger     logger.Logger
}

// NewCommandHandler creates a new command drafting handler.
func NewCommandHandler(draftStore commandgen.Store, generator commandgen.Generator, modelID string, log logger.Logger) *CommandHandler {
	return &CommandHandler{
		draftStore: draftStore,
		generator:  generator,
		modelID:    modelID,
		limits:     commandgen.DefaultLimits(),
		logger:     log,
	}
}

// DraftCommandsRequest represents a command drafting request.
type DraftCommandsRequest struct {
	Goal string `json:"goal"`
	URL  string `json:"url,omitempty"`
}

// Draft handles drafting a command list from a plain-English goal.
// It creates a DB record with StatusGenerating, returns 202 Accepted
// immediately, and performs the LLM call in a background goroutine.
func (h *CommandHandler) Draft(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		respondError(w, http.StatusServiceUnavailable, "command drafting is not configured")
		return
	}

	var req DraftCommandsRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := commandgen.ValidateDraftInput(req.Goal, req.URL, h.limits); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft := &commandgen.Draft{
		Goal:      commandgen.SanitizeGoal(req.Goal),
		TargetURL: commandgen.SanitizeTargetURL(req.URL),
		ModelID:   h.modelID,
		Status:    commandgen.StatusGenerating,
	}

	if err := h.draftStore.Create(r.Context(), draft); err != nil {
		h.logger.Error(r.Context(), "failed to create draft record", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create draft record")
		return
	}

	// Detached context so the goroutine is not cancelled when the HTTP
	// request context expires.
	go h.draftInBackground(context.Background(), draft)

	h.logger.Info(r.Context(), "command drafting started", map[string]interface{}{
		"draft_id": draft.ID.String(),
		"model_id": h.modelID,
	})

	respondJSON(w, http.StatusAccepted, draft)
}

// draftInBackground performs the LLM call and final DB update for an async
// drafting request. It must be called in a goroutine with a context that is
// not tied to an HTTP request lifetime.
func (h *CommandHandler) draftInBackground(ctx context.Context, draft *commandgen.Draft) {
	commands, err := h.generator.GenerateCommands(ctx, draft.Goal, draft.TargetURL)
	if err != nil {
		h.logger.Error(ctx, "command drafting failed", map[string]interface{}{
			"error":    err.Error(),
			"draft_id": draft.ID.String(),
		})
		if updateErr := h.draftStore.Update(ctx, draft.ID, commandgen.SetErrorMessage(err.Error())); updateErr != nil {
			h.logger.Error(ctx, "failed to record drafting failure", map[string]interface{}{
				"error":    updateErr.Error(),
				"draft_id": draft.ID.String(),
			})
		}
		return
	}

	if err := h.draftStore.Update(ctx, draft.ID, commandgen.SetCommands(commands)); err != nil {
		h.logger.Error(ctx, "failed to record drafted commands", map[string]interface{}{
			"error":    err.Error(),
			"draft_id": draft.ID.String(),
		})
		return
	}

	h.logger.Info(ctx, "command drafting completed", map[string]interface{}{
		"draft_id": draft.ID.String(),
		"commands": len(commands),
	})
}

// GetDraft handles getting a single draft by ID, for status polling.
func (h *CommandHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "draft")
	if !ok {
		return
	}

	draft, err := h.draftStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, commandgen.ErrDraftNotFound) {
			respondError(w, http.StatusNotFound, "draft not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get draft", map[string]interface{}{
			"error":    err.Error(),
			"draft_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get draft")
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

// ListDrafts handles listing drafts, newest first.
func (h *CommandHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	total, err := h.draftStore.Count(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to count drafts", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to count drafts")
		return
	}

	drafts, err := h.draftStore.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list drafts", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list drafts")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(drafts, total, limit, offset))
}
