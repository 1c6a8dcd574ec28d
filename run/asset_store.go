package run

import (
	"context"

	"github.com/google/uuid"
)

// AssetStore manages archived invocation artifacts.
type AssetStore interface {
	Create(ctx context.Context, a *Asset) error
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*Asset, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
