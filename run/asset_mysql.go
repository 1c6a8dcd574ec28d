package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// MySQLAssetStore implements the AssetStore interface using GORM and MySQL.
type MySQLAssetStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLAssetStore creates a new MySQL-backed asset store.
func NewMySQLAssetStore(db *gorm.DB, log logger.Logger) *MySQLAssetStore {
	return &MySQLAssetStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new asset record.
func (s *MySQLAssetStore) Create(ctx context.Context, a *Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		s.logger.Error(ctx, "failed to create asset", map[string]interface{}{
			"error":   err.Error(),
			"item_id": a.ItemID.String(),
		})
		return err
	}

	return nil
}

// GetByID retrieves an asset by its ID.
func (s *MySQLAssetStore) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	var a Asset
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&a).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		s.logger.Error(ctx, "failed to get asset by ID", map[string]interface{}{
			"error":    err.Error(),
			"asset_id": id.String(),
		})
		return nil, err
	}

	return &a, nil
}

// ListByItem retrieves all assets of one item, oldest first.
func (s *MySQLAssetStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*Asset, error) {
	var assets []*Asset
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("uploaded_at ASC").
		Find(&assets).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list assets by item", map[string]interface{}{
			"error":   err.Error(),
			"item_id": itemID.String(),
		})
		return nil, err
	}

	return assets, nil
}

// ListByRun retrieves all assets of a run, oldest first.
func (s *MySQLAssetStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]*Asset, error) {
	var assets []*Asset
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("uploaded_at ASC").
		Find(&assets).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list assets by run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": runID.String(),
		})
		return nil, err
	}

	return assets, nil
}

// Delete removes an asset record.
func (s *MySQLAssetStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&Asset{})

	if res.Error != nil {
		s.logger.Error(ctx, "failed to delete asset", map[string]interface{}{
			"error":    res.Error.Error(),
			"asset_id": id.String(),
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAssetNotFound
	}

	return nil
}
