package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/automation-bridge/apitoken"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/testutil"
)

func setupTokenHandler(t *testing.T) (*APITokenHandler, apitoken.Store) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &apitoken.APIToken{})
	log := logger.NewTestLogger()

	store := apitoken.NewMySQLStore(db, log)
	return NewAPITokenHandler(store, log), store
}

func tokenRouter(h *APITokenHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/tokens", h.Create).Methods("POST")
	r.HandleFunc("/api/v1/tokens", h.List).Methods("GET")
	r.HandleFunc("/api/v1/tokens/{token_id}", h.Revoke).Methods("DELETE")
	return r
}

func TestAPITokenCreate(t *testing.T) {
	t.Parallel()
	handler, store := setupTokenHandler(t)
	router := tokenRouter(handler)

	t.Run("returns the raw token once", func(t *testing.T) {
		body, _ := json.Marshal(CreateTokenRequest{Name: "ci-pipeline", Scope: apitoken.ScopeReadWrite})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body)))

		require.Equal(t, http.StatusCreated, w.Code)

		var resp CreateTokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ci-pipeline", resp.Name)
		assert.Equal(t, apitoken.ScopeReadWrite, resp.Scope)
		assert.True(t, strings.HasPrefix(resp.Token, "abt_"))

		// The stored hash must match the returned raw token
		stored, err := store.GetByTokenHash(context.Background(), apitoken.HashToken(resp.Token))
		require.NoError(t, err)
		assert.Equal(t, "ci-pipeline", stored.Name)
	})

	t.Run("defaults to read_only and a one month expiry", func(t *testing.T) {
		body, _ := json.Marshal(CreateTokenRequest{Name: "dashboard"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body)))

		require.Equal(t, http.StatusCreated, w.Code)

		var resp CreateTokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, apitoken.ScopeReadOnly, resp.Scope)

		expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(apitoken.DefaultExpiry), expiresAt, time.Minute)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		body, _ := json.Marshal(CreateTokenRequest{Scope: apitoken.ScopeReadOnly})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "token name is required")
	})

	t.Run("rejects unknown scope", func(t *testing.T) {
		body, _ := json.Marshal(CreateTokenRequest{Name: "bad", Scope: "admin"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid scope")
	})
}

func TestAPITokenCreateLimit(t *testing.T) {
	t.Parallel()
	handler, store := setupTokenHandler(t)
	router := tokenRouter(handler)

	ctx := context.Background()
	for i := 0; i < apitoken.MaxActiveTokens; i++ {
		_, hash, err := apitoken.GenerateToken()
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, &apitoken.APIToken{
			Name:      fmt.Sprintf("token-%d", i),
			TokenHash: hash,
			Scope:     apitoken.ScopeReadOnly,
			ExpiresAt: time.Now().Add(apitoken.DefaultExpiry),
			IsActive:  true,
		}))
	}

	body, _ := json.Marshal(CreateTokenRequest{Name: "one-too-many"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "maximum number of active tokens")
}

func TestAPITokenList(t *testing.T) {
	t.Parallel()
	handler, _ := setupTokenHandler(t)
	router := tokenRouter(handler)

	body, _ := json.Marshal(CreateTokenRequest{Name: "ci-pipeline"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var created CreateTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Tokens, 1)
	assert.Equal(t, "ci-pipeline", resp.Tokens[0].Name)
	assert.True(t, resp.Tokens[0].IsActive)

	// Neither the raw token nor its hash leaves through the list
	assert.NotContains(t, w.Body.String(), created.Token)
	assert.NotContains(t, w.Body.String(), apitoken.HashToken(created.Token))
}

func TestAPITokenRevoke(t *testing.T) {
	t.Parallel()
	handler, store := setupTokenHandler(t)
	router := tokenRouter(handler)

	_, hash, err := apitoken.GenerateToken()
	require.NoError(t, err)
	token := &apitoken.APIToken{
		Name:      "short-lived",
		TokenHash: hash,
		Scope:     apitoken.ScopeReadWrite,
		ExpiresAt: time.Now().Add(apitoken.DefaultExpiry),
		IsActive:  true,
	}
	require.NoError(t, store.Create(context.Background(), token))

	t.Run("revokes an existing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/tokens/"+token.ID.String(), nil))
		require.Equal(t, http.StatusOK, w.Code)

		// Revoked tokens no longer authenticate
		_, err := store.GetByTokenHash(context.Background(), hash)
		assert.ErrorIs(t, err, apitoken.ErrTokenNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/tokens/9b9e7a4c-72ab-44f0-9f61-111111111111", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed token id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/tokens/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
