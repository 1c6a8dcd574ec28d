package run

import (
	"context"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
)

// ItemStore manages run item persistence.
type ItemStore interface {
	CreateBatch(ctx context.Context, items []*Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	// ListByRun returns the run's items ordered by item_index.
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*Item, error)
	Start(ctx context.Context, id uuid.UUID) error
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome automation.Outcome) error
	MarkSkipped(ctx context.Context, id uuid.UUID) error
}
