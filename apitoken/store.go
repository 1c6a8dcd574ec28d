package apitoken

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for API token persistence operations.
type Store interface {
	// Create creates a new API token in the store.
	Create(ctx context.Context, token *APIToken) error

	// GetByID retrieves an API token by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error)

	// GetByTokenHash retrieves an active, non-expired token by its hash.
	GetByTokenHash(ctx context.Context, hash string) (*APIToken, error)

	// List retrieves active tokens, ordered by created_at DESC.
	List(ctx context.Context) ([]*APIToken, error)

	// CountActive returns the count of active tokens.
	CountActive(ctx context.Context) (int, error)

	// Revoke sets a token's is_active to false.
	Revoke(ctx context.Context, id uuid.UUID) error

	// Delete hard-deletes a token.
	Delete(ctx context.Context, id uuid.UUID) error
}
