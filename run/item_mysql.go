package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// MySQLItemStore implements the ItemStore interface using GORM and MySQL.
type MySQLItemStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLItemStore creates a new MySQL-backed item store.
func NewMySQLItemStore(db *gorm.DB, log logger.Logger) *MySQLItemStore {
	return &MySQLItemStore{
		db:     db,
		logger: log,
	}
}

// CreateBatch writes all of a run's items in one transaction, so a run is
// never persisted with a partial item list.
func (s *MySQLItemStore) CreateBatch(ctx context.Context, items []*Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.WithContext(ctx).Create(item).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		s.logger.Error(ctx, "failed to create run items", map[string]interface{}{
			"error":  err.Error(),
			"run_id": items[0].RunID.String(),
			"items":  len(items),
		})
		return err
	}

	return nil
}

// GetByID retrieves an item by its ID.
func (s *MySQLItemStore) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	var item Item
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error(ctx, "failed to get item by ID", map[string]interface{}{
			"error":   err.Error(),
			"item_id": id.String(),
		})
		return nil, err
	}

	return &item, nil
}

// ListByRun retrieves all items of a run in submission order.
func (s *MySQLItemStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]*Item, error) {
	var items []*Item
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("item_index ASC").
		Find(&items).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list items by run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": runID.String(),
		})
		return nil, err
	}

	return items, nil
}

// Start marks an item as running.
func (s *MySQLItemStore) Start(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, func(item *Item) error {
		return item.Start()
	})
}

// RecordOutcome finalizes an item with its invocation outcome.
func (s *MySQLItemStore) RecordOutcome(ctx context.Context, id uuid.UUID, outcome automation.Outcome) error {
	return s.transition(ctx, id, func(item *Item) error {
		return item.RecordOutcome(outcome)
	})
}

// MarkSkipped finalizes an item that never ran.
func (s *MySQLItemStore) MarkSkipped(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, func(item *Item) error {
		return item.MarkSkipped()
	})
}

// transition loads, mutates, and saves an item inside one transaction.
func (s *MySQLItemStore) transition(ctx context.Context, id uuid.UUID, mutate func(*Item) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		if err := mutate(&item); err != nil {
			return err
		}

		return tx.WithContext(ctx).Save(&item).Error
	})

	if err != nil {
		if !errors.Is(err, ErrItemNotFound) && !errors.Is(err, ErrItemAlreadyStarted) &&
			!errors.Is(err, ErrItemNotRunning) && !errors.Is(err, ErrItemNotPending) {
			s.logger.Error(ctx, "failed to transition item", map[string]interface{}{
				"error":   err.Error(),
				"item_id": id.String(),
			})
		}
		return err
	}

	return nil
}
