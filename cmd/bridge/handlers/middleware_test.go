package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/automation-bridge/apitoken"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// fakeTokenStore holds tokens by hash, mimicking the store's contract that
// GetByTokenHash only returns active, unexpired tokens.
type fakeTokenStore struct {
	byHash map[string]*apitoken.APIToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{byHash: make(map[string]*apitoken.APIToken)}
}

func (s *fakeTokenStore) add(token *apitoken.APIToken) {
	s.byHash[token.TokenHash] = token
}

func (s *fakeTokenStore) Create(ctx context.Context, token *apitoken.APIToken) error {
	s.add(token)
	return nil
}

func (s *fakeTokenStore) GetByID(ctx context.Context, id uuid.UUID) (*apitoken.APIToken, error) {
	for _, t := range s.byHash {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apitoken.ErrTokenNotFound
}

func (s *fakeTokenStore) GetByTokenHash(ctx context.Context, hash string) (*apitoken.APIToken, error) {
	t, ok := s.byHash[hash]
	if !ok {
		return nil, apitoken.ErrTokenNotFound
	}
	return t, nil
}

func (s *fakeTokenStore) List(ctx context.Context) ([]*apitoken.APIToken, error) {
	tokens := make([]*apitoken.APIToken, 0, len(s.byHash))
	for _, t := range s.byHash {
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (s *fakeTokenStore) CountActive(ctx context.Context) (int, error) {
	return len(s.byHash), nil
}

func (s *fakeTokenStore) Revoke(ctx context.Context, id uuid.UUID) error {
	for hash, t := range s.byHash {
		if t.ID == id {
			delete(s.byHash, hash)
			return nil
		}
	}
	return apitoken.ErrTokenNotFound
}

func (s *fakeTokenStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.Revoke(ctx, id)
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	store := newFakeTokenStore()
	rawToken, hash, err := apitoken.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	store.add(&apitoken.APIToken{
		ID:        uuid.New(),
		Name:      "ci",
		TokenHash: hash,
		Scope:     apitoken.ScopeReadOnly,
		IsActive:  true,
	})

	middleware := NewAuthMiddleware(store, logger.NewTestLogger())

	var gotName string
	var gotScope string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName, _ = GetTokenName(r.Context())
		gotScope = GetScope(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid token passes",
			authHeader: "Bearer " + rawToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header rejected",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-bearer header rejected",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown token rejected",
			authHeader: "Bearer abt_does-not-exist",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			w := httptest.NewRecorder()

			middleware.Handler(next).ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status code = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}

	if gotName != "ci" {
		t.Errorf("token name in context = %q, want %q", gotName, "ci")
	}
	if gotScope != apitoken.ScopeReadOnly {
		t.Errorf("scope in context = %q, want %q", gotScope, apitoken.ScopeReadOnly)
	}
}

func TestRequireWriteScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		scope      string
		wantOK     bool
		wantStatus int
	}{
		{
			name:   "read_write scope passes",
			scope:  apitoken.ScopeReadWrite,
			wantOK: true,
		},
		{
			name:       "read_only scope returns 403",
			scope:      apitoken.ScopeReadOnly,
			wantOK:     false,
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "no scope in context defaults to read_write",
			scope:  "",
			wantOK: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if tc.scope != "" {
				ctx := context.WithValue(req.Context(), ScopeKey, tc.scope)
				req = req.WithContext(ctx)
			}
			w := httptest.NewRecorder()

			got := RequireWriteScope(w, req)
			if got != tc.wantOK {
				t.Errorf("RequireWriteScope() = %v, want %v", got, tc.wantOK)
			}
			if !tc.wantOK && w.Code != tc.wantStatus {
				t.Errorf("status code = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

func TestWriteScopeMiddleware(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		method     string
		scope      string
		wantStatus int
	}{
		{
			name:       "GET with read_only passes",
			method:     http.MethodGet,
			scope:      apitoken.ScopeReadOnly,
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET with read_write passes",
			method:     http.MethodGet,
			scope:      apitoken.ScopeReadWrite,
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST with read_write passes",
			method:     http.MethodPost,
			scope:      apitoken.ScopeReadWrite,
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST with read_only blocked",
			method:     http.MethodPost,
			scope:      apitoken.ScopeReadOnly,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "PUT with read_only blocked",
			method:     http.MethodPut,
			scope:      apitoken.ScopeReadOnly,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "DELETE with read_only blocked",
			method:     http.MethodDelete,
			scope:      apitoken.ScopeReadOnly,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "PATCH with read_only blocked",
			method:     http.MethodPatch,
			scope:      apitoken.ScopeReadOnly,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "HEAD with read_only passes",
			method:     http.MethodHead,
			scope:      apitoken.ScopeReadOnly,
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tc.method, "/test", nil)
			ctx := context.WithValue(req.Context(), ScopeKey, tc.scope)
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			WriteScopeMiddleware(okHandler).ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status code = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}
