package commandgen

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for command draft persistence.
type Store interface {
	// Create creates a new draft record.
	Create(ctx context.Context, draft *Draft) error

	// GetByID retrieves a draft by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Draft, error)

	// List retrieves a paginated list of drafts, newest first.
	List(ctx context.Context, limit, offset int) ([]*Draft, error)

	// Count returns the total number of drafts.
	Count(ctx context.Context) (int, error)

	// Update updates a draft with setter functions.
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error

	// Delete deletes a draft by its ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpdateSetter mutates a draft during an update.
type UpdateSetter func(*Draft) error
