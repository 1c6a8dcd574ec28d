package run

import (
	"testing"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/batch"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/testutil"
)

// setupTestStores creates a test database and the three run stores.
func setupTestStores(t *testing.T) (Store, ItemStore, AssetStore) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Run{}, &Item{}, &Asset{})

	log := logger.NewTestLogger()
	return NewMySQLStore(db, log), NewMySQLItemStore(db, log), NewMySQLAssetStore(db, log)
}

func testRun(totalItems int) *Run {
	return &Run{
		Policy:     batch.PolicyContinue,
		TotalItems: totalItems,
		Status:     StatusPending,
	}
}

func testRequest(command string) *automation.Request {
	return &automation.Request{
		Operation: automation.OperationPerformActions,
		Commands:  []string{command},
		TargetURL: "https://example.com",
		Headless:  true,
		Timeout:   60,
		Options:   automation.DefaultOptions(),
	}
}
