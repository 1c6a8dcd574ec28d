package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/testutil"
)

func setupTestStore(t *testing.T) *MySQLStore {
	t.Helper()
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.AutoMigrate(&Credential{}))
	return NewMySQLStore(db, logger.NewTestLogger())
}

func testCredential(t *testing.T, name string) *Credential {
	t.Helper()
	key := DeriveKey("test-passphrase")
	encrypted, err := EncryptCredentials(key, map[string]string{SecretAPIKey: "nova-test-key-1234"})
	require.NoError(t, err)

	return &Credential{
		Name:            name,
		Kind:            KindEngine,
		EncryptedSecret: encrypted,
		IsActive:        true,
	}
}

func TestMySQLStore_Create(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("create valid credential", func(t *testing.T) {
		cred := testCredential(t, "prod-engine")
		require.NoError(t, store.Create(ctx, cred))
		assert.NotEmpty(t, cred.ID)
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, testCredential(t, "dup-engine")))
		err := store.Create(ctx, testCredential(t, "dup-engine"))
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("missing name is rejected", func(t *testing.T) {
		cred := testCredential(t, "")
		err := store.Create(ctx, cred)
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		cred := testCredential(t, "bad-kind")
		cred.Kind = "password"
		err := store.Create(ctx, cred)
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("empty secret is rejected", func(t *testing.T) {
		cred := testCredential(t, "no-secret")
		cred.EncryptedSecret = nil
		err := store.Create(ctx, cred)
		assert.ErrorIs(t, err, ErrEmptySecret)
	})
}

func TestMySQLStore_GetByName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("secret round trips through the store", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, testCredential(t, "prod-engine")))

		cred, err := store.GetByName(ctx, "prod-engine")
		require.NoError(t, err)
		assert.Equal(t, KindEngine, cred.Kind)

		key := DeriveKey("test-passphrase")
		secrets, err := DecryptCredentials(key, cred.EncryptedSecret)
		require.NoError(t, err)
		assert.Equal(t, "nova-test-key-1234", secrets[SecretAPIKey])
	})

	t.Run("missing credential returns error", func(t *testing.T) {
		_, err := store.GetByName(ctx, "nope")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}

func TestMySQLStore_List(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testCredential(t, "zeta")))
	require.NoError(t, store.Create(ctx, testCredential(t, "alpha")))

	creds, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "alpha", creds[0].Name)
	assert.Equal(t, "zeta", creds[1].Name)
}

func TestMySQLStore_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testCredential(t, "prod-engine")))

	t.Run("deactivate", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, "prod-engine", SetActive(false)))

		cred, err := store.GetByName(ctx, "prod-engine")
		require.NoError(t, err)
		assert.False(t, cred.IsActive)
	})

	t.Run("rotate secret", func(t *testing.T) {
		key := DeriveKey("test-passphrase")
		rotated, err := EncryptCredentials(key, map[string]string{SecretAPIKey: "nova-rotated-key"})
		require.NoError(t, err)

		require.NoError(t, store.Update(ctx, "prod-engine", SetEncryptedSecret(rotated)))

		cred, err := store.GetByName(ctx, "prod-engine")
		require.NoError(t, err)
		secrets, err := DecryptCredentials(key, cred.EncryptedSecret)
		require.NoError(t, err)
		assert.Equal(t, "nova-rotated-key", secrets[SecretAPIKey])
	})

	t.Run("empty rotation is rejected", func(t *testing.T) {
		err := store.Update(ctx, "prod-engine", SetEncryptedSecret(nil))
		assert.ErrorIs(t, err, ErrEmptySecret)
	})

	t.Run("missing credential returns error", func(t *testing.T) {
		err := store.Update(ctx, "nope", SetActive(true))
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}

func TestMySQLStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("delete existing credential", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, testCredential(t, "prod-engine")))
		require.NoError(t, store.Delete(ctx, "prod-engine"))

		_, err := store.GetByName(ctx, "prod-engine")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})

	t.Run("delete missing credential returns error", func(t *testing.T) {
		err := store.Delete(ctx, "nope")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}
