package run

import (
	"context"

	"github.com/google/uuid"
)

// Store manages run persistence.
type Store interface {
	Create(ctx context.Context, r *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error
	List(ctx context.Context, limit, offset int) ([]*Run, error)
	Count(ctx context.Context) (int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Run, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	Start(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, status Status, completedItems, failedItems int) error
	// ClaimNextPending atomically takes the oldest pending run and marks it
	// running. Returns ErrNoPendingRuns when nothing is waiting.
	ClaimNextPending(ctx context.Context) (*Run, error)
}

type UpdateSetter func(*Run) error
