package commandgen

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed draft store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new draft record in the database.
func (s *MySQLStore) Create(ctx context.Context, draft *Draft) error {
	if draft.Status == "" {
		draft.Status = StatusPending
	}

	if err := draft.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(draft).Error; err != nil {
		s.logger.Error(ctx, "failed to create command draft", map[string]interface{}{
			"error":    err.Error(),
			"model_id": draft.ModelID,
		})
		return err
	}

	s.logger.Info(ctx, "command draft created", map[string]interface{}{
		"draft_id": draft.ID.String(),
		"model_id": draft.ModelID,
	})

	return nil
}

// GetByID retrieves a draft by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Draft, error) {
	var draft Draft
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&draft).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		s.logger.Error(ctx, "failed to get command draft", map[string]interface{}{
			"error":    err.Error(),
			"draft_id": id.String(),
		})
		return nil, err
	}

	return &draft, nil
}

// List retrieves a paginated list of drafts, newest first.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*Draft, error) {
	var drafts []*Draft
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&drafts).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list command drafts", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	return drafts, nil
}

// Count returns the total number of drafts.
func (s *MySQLStore) Count(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Draft{}).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count command drafts", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}

	return int(count), nil
}

// Update updates a draft with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	draft, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(draft); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(draft).Error; err != nil {
		s.logger.Error(ctx, "failed to update command draft", map[string]interface{}{
			"error":    err.Error(),
			"draft_id": id.String(),
		})
		return err
	}

	return nil
}

// Delete deletes a draft by its ID.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&Draft{})

	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete command draft", map[string]interface{}{
			"error":    result.Error.Error(),
			"draft_id": id.String(),
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrDraftNotFound
	}

	s.logger.Info(ctx, "command draft deleted", map[string]interface{}{
		"draft_id": id.String(),
	})

	return nil
}
