// Package handlers implements the HTTP API of the automation bridge.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response with a message.
type SuccessResponse struct {
	Message string `json:"message"`
}

// PaginatedResponse represents a standardized paginated API response.
// All list endpoints return this format.
type PaginatedResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// NewPaginatedResponse creates a new paginated response.
func NewPaginatedResponse(items interface{}, total, limit, offset int) PaginatedResponse {
	return PaginatedResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondSuccess writes a success response with the given message.
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, SuccessResponse{Message: message})
}

// parseJSON parses JSON from the request body into the given destination.
func parseJSON(r *http.Request, dest interface{}, log logger.Logger) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.Error(r.Context(), "failed to parse JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// parseUUID parses a UUID from the request path parameters.
func parseUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	vars := mux.Vars(r)
	return uuid.Parse(vars[paramName])
}

// parseUUIDOrRespond parses a UUID from path parameters and responds with an
// error if invalid. Returns the UUID and true if successful, or uuid.Nil and
// false if parsing failed (error response already sent).
func parseUUIDOrRespond(w http.ResponseWriter, r *http.Request, paramName, entityName string) (uuid.UUID, bool) {
	id, err := parseUUID(r, paramName)
	if err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid %s ID: must be a valid UUID", entityName))
		return uuid.Nil, false
	}
	return id, true
}

// parseIntOrRespond parses a non-negative integer path parameter.
func parseIntOrRespond(w http.ResponseWriter, r *http.Request, paramName string) (int, bool) {
	vars := mux.Vars(r)
	n, err := strconv.Atoi(vars[paramName])
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid %s: must be a non-negative integer", paramName))
		return 0, false
	}
	return n, true
}

// parsePagination reads limit/offset query parameters with the house
// defaults: limit 20 capped at 100, offset 0.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if o, err := strconv.Atoi(s); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
