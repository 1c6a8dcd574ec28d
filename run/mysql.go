package run

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed run store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new run in the database.
func (s *MySQLStore) Create(ctx context.Context, r *Run) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		s.logger.Error(ctx, "failed to create run", map[string]interface{}{
			"error":  err.Error(),
			"policy": string(r.Policy),
		})
		return err
	}

	s.logger.Info(ctx, "run created", map[string]interface{}{
		"run_id": r.ID.String(),
		"policy": string(r.Policy),
		"items":  r.TotalItems,
	})

	return nil
}

// GetByID retrieves a run by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	var r Run
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&r).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		s.logger.Error(ctx, "failed to get run by ID", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id.String(),
		})
		return nil, err
	}

	return &r, nil
}

// Update updates a run with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(r); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		s.logger.Error(ctx, "failed to update run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id.String(),
		})
		return err
	}

	return nil
}

// List retrieves a paginated list of runs, newest first.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*Run, error) {
	var runs []*Run
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list runs", map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}

	return runs, nil
}

// Count returns the total number of runs.
func (s *MySQLStore) Count(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Run{}).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count runs", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}

	return int(count), nil
}

// ListByStatus retrieves a paginated list of runs filtered by status.
func (s *MySQLStore) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Run, error) {
	var runs []*Run
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list runs by status", map[string]interface{}{
			"error":  err.Error(),
			"status": string(status),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}

	return runs, nil
}

// CountByStatus returns the number of runs with the given status.
func (s *MySQLStore) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Run{}).
		Where("status = ?", status).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count runs by status", map[string]interface{}{
			"error":  err.Error(),
			"status": string(status),
		})
		return 0, err
	}

	return int(count), nil
}

// Start marks a run as running.
func (s *MySQLStore) Start(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r Run
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRunNotFound
			}
			return err
		}

		if err := r.Start(); err != nil {
			return err
		}

		return tx.WithContext(ctx).Save(&r).Error
	})

	if err != nil {
		if !errors.Is(err, ErrRunNotFound) && !errors.Is(err, ErrRunAlreadyStarted) {
			s.logger.Error(ctx, "failed to start run", map[string]interface{}{
				"error":  err.Error(),
				"run_id": id.String(),
			})
		}
		return err
	}

	s.logger.Info(ctx, "run started", map[string]interface{}{
		"run_id": id.String(),
	})

	return nil
}

// Complete marks a run as finished with the given status and item tallies.
func (s *MySQLStore) Complete(ctx context.Context, id uuid.UUID, status Status, completedItems, failedItems int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r Run
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRunNotFound
			}
			return err
		}

		if err := r.Complete(status, completedItems, failedItems); err != nil {
			return err
		}

		return tx.WithContext(ctx).Save(&r).Error
	})

	if err != nil {
		if !errors.Is(err, ErrRunNotFound) && !errors.Is(err, ErrRunNotRunning) {
			s.logger.Error(ctx, "failed to complete run", map[string]interface{}{
				"error":  err.Error(),
				"run_id": id.String(),
				"status": string(status),
			})
		}
		return err
	}

	s.logger.Info(ctx, "run completed", map[string]interface{}{
		"run_id": id.String(),
		"status": string(status),
	})

	return nil
}

// ClaimNextPending takes the oldest pending run. The status guard on the
// update keeps two workers from claiming the same run: the loser sees zero
// affected rows and reports ErrNoPendingRuns.
func (s *MySQLStore) ClaimNextPending(ctx context.Context) (*Run, error) {
	var r Run
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at ASC").
		First(&r).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingRuns
		}
		s.logger.Error(ctx, "failed to find pending run", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&Run{}).
		Where("id = ? AND status = ?", r.ID, StatusPending).
		Updates(map[string]interface{}{
			"status":     StatusRunning,
			"started_at": now,
		})

	if res.Error != nil {
		s.logger.Error(ctx, "failed to claim run", map[string]interface{}{
			"error":  res.Error.Error(),
			"run_id": r.ID.String(),
		})
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoPendingRuns
	}

	r.Status = StatusRunning
	r.StartedAt = &now

	s.logger.Info(ctx, "run claimed", map[string]interface{}{
		"run_id": r.ID.String(),
	})

	return &r, nil
}
