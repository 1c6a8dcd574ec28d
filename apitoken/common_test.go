package apitoken

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/testutil"
)

// setupTestStore creates a test database and API token store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &APIToken{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}

// createTestToken creates an API token with default values for testing.
func createTestToken(name string, scope string, hash string) *APIToken {
	return &APIToken{
		Name:      name,
		Scope:     scope,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(DefaultExpiry),
		IsActive:  true,
	}
}
