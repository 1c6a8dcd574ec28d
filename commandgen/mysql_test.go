package commandgen

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/testutil"
)

func setupDraftStore(t *testing.T) *MySQLStore {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Draft{})
	return NewMySQLStore(db, logger.NewTestLogger())
}

func testDraft() *Draft {
	return &Draft{
		Goal:      "Log into the portal and export the weekly report",
		TargetURL: "https://portal.example.com",
		ModelID:   "anthropic.claude-3-haiku-20240307-v1:0",
	}
}

func TestDraftValidate(t *testing.T) {
	t.Run("valid pending draft", func(t *testing.T) {
		d := testDraft()
		d.Status = StatusPending
		assert.NoError(t, d.Validate())
	})

	t.Run("missing goal", func(t *testing.T) {
		d := testDraft()
		d.Goal = ""
		d.Status = StatusPending
		assert.ErrorIs(t, d.Validate(), ErrEmptyGoal)
	})

	t.Run("missing model id", func(t *testing.T) {
		d := testDraft()
		d.ModelID = ""
		d.Status = StatusPending
		assert.ErrorIs(t, d.Validate(), ErrInvalidModelID)
	})

	t.Run("unknown status", func(t *testing.T) {
		d := testDraft()
		d.Status = DraftStatus("drafting")
		assert.ErrorIs(t, d.Validate(), ErrInvalidDraftStatus)
	})

	t.Run("completed draft needs commands", func(t *testing.T) {
		d := testDraft()
		d.Status = StatusCompleted
		assert.ErrorIs(t, d.Validate(), ErrNoCommands)

		d.Commands = []string{"Navigate to the portal"}
		assert.NoError(t, d.Validate())
	})
}

func TestMySQLStore_CreateDraft(t *testing.T) {
	store := setupDraftStore(t)
	ctx := context.Background()

	t.Run("success with default status", func(t *testing.T) {
		d := testDraft()
		err := store.Create(ctx, d)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, d.ID)
		assert.Equal(t, StatusPending, d.Status)
	})

	t.Run("rejects invalid draft", func(t *testing.T) {
		d := testDraft()
		d.Goal = ""
		err := store.Create(ctx, d)
		assert.ErrorIs(t, err, ErrEmptyGoal)
	})
}

func TestMySQLStore_GetDraft(t *testing.T) {
	store := setupDraftStore(t)
	ctx := context.Background()

	d := testDraft()
	require.NoError(t, store.Create(ctx, d))

	t.Run("found", func(t *testing.T) {
		got, err := store.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Goal, got.Goal)
		assert.Equal(t, d.TargetURL, got.TargetURL)
		assert.Equal(t, d.ModelID, got.ModelID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrDraftNotFound)
	})
}

func TestMySQLStore_ListDrafts(t *testing.T) {
	store := setupDraftStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, testDraft()))
	}

	drafts, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, drafts, 3)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestMySQLStore_UpdateDraft(t *testing.T) {
	store := setupDraftStore(t)
	ctx := context.Background()

	t.Run("record generated commands", func(t *testing.T) {
		d := testDraft()
		require.NoError(t, store.Create(ctx, d))

		commands := []string{
			"Navigate to https://portal.example.com",
			"Click the 'Sign in' button",
			"Click 'Weekly report' then 'Export'",
		}
		err := store.Update(ctx, d.ID, SetCommands(commands))
		require.NoError(t, err)

		got, err := store.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, commands, []string(got.Commands))
		assert.Nil(t, got.ErrorMessage)
	})

	t.Run("record drafting failure", func(t *testing.T) {
		d := testDraft()
		require.NoError(t, store.Create(ctx, d))

		err := store.Update(ctx, d.ID, SetErrorMessage("model returned no content"))
		require.NoError(t, err)

		got, err := store.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "model returned no content", *got.ErrorMessage)
	})

	t.Run("empty command list rejected", func(t *testing.T) {
		d := testDraft()
		require.NoError(t, store.Create(ctx, d))

		err := store.Update(ctx, d.ID, SetCommands(nil))
		assert.ErrorIs(t, err, ErrNoCommands)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		d := testDraft()
		require.NoError(t, store.Create(ctx, d))

		err := store.Update(ctx, d.ID, SetStatus(DraftStatus("drafting")))
		assert.ErrorIs(t, err, ErrInvalidDraftStatus)
	})

	t.Run("not found", func(t *testing.T) {
		err := store.Update(ctx, uuid.New(), SetStatus(StatusGenerating))
		assert.ErrorIs(t, err, ErrDraftNotFound)
	})
}

func TestMySQLStore_DeleteDraft(t *testing.T) {
	store := setupDraftStore(t)
	ctx := context.Background()

	d := testDraft()
	require.NoError(t, store.Create(ctx, d))

	require.NoError(t, store.Delete(ctx, d.ID))

	_, err := store.GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)

	err = store.Delete(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}
