package credential

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed credential store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new credential in the database.
func (s *MySQLStore) Create(ctx context.Context, cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(cred).Error; err != nil {
		// Check for duplicate key error (MySQL and SQLite)
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateName
		}
		s.logger.Error(ctx, "failed to create credential", map[string]interface{}{
			"error": err.Error(),
			"name":  cred.Name,
		})
		return err
	}

	s.logger.Info(ctx, "credential created", map[string]interface{}{
		"credential_id": cred.ID.String(),
		"name":          cred.Name,
		"kind":          string(cred.Kind),
	})

	return nil
}

// GetByName retrieves a credential by its name.
func (s *MySQLStore) GetByName(ctx context.Context, name string) (*Credential, error) {
	var cred Credential
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		First(&cred).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		s.logger.Error(ctx, "failed to get credential by name", map[string]interface{}{
			"error": err.Error(),
			"name":  name,
		})
		return nil, err
	}

	return &cred, nil
}

// List retrieves all credentials ordered by name.
func (s *MySQLStore) List(ctx context.Context) ([]*Credential, error) {
	var creds []*Credential
	err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&creds).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list credentials", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	return creds, nil
}

// Update updates a credential with the given setters.
func (s *MySQLStore) Update(ctx context.Context, name string, setters ...UpdateSetter) error {
	cred, err := s.GetByName(ctx, name)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(cred); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(cred).Error; err != nil {
		s.logger.Error(ctx, "failed to update credential", map[string]interface{}{
			"error": err.Error(),
			"name":  name,
		})
		return err
	}

	s.logger.Info(ctx, "credential updated", map[string]interface{}{
		"name": name,
	})

	return nil
}

// Delete deletes a credential by its name.
func (s *MySQLStore) Delete(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Delete(&Credential{}, "name = ?", name)
	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete credential", map[string]interface{}{
			"error": result.Error.Error(),
			"name":  name,
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCredentialNotFound
	}

	s.logger.Info(ctx, "credential deleted", map[string]interface{}{
		"name": name,
	})

	return nil
}
