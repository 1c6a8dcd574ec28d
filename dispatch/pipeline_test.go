package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/batch"
	"github.com/hairizuan-noorazman/automation-bridge/credential"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/notify"
	"github.com/hairizuan-noorazman/automation-bridge/run"
	"github.com/hairizuan-noorazman/automation-bridge/storage"
	"github.com/hairizuan-noorazman/automation-bridge/testutil"
)

const testMasterPassphrase = "dispatch-test-passphrase"

// fakeInvoker records every invocation and replies with canned outcomes
// keyed by the request's first command.
type fakeInvoker struct {
	mu       sync.Mutex
	requests []*automation.Request
	keys     []string
	outcomes map[string]automation.Outcome
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{outcomes: make(map[string]automation.Outcome)}
}

func (f *fakeInvoker) Execute(ctx context.Context, req *automation.Request, apiKey string) automation.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.keys = append(f.keys, apiKey)

	if len(req.Commands) > 0 {
		if outcome, ok := f.outcomes[req.Commands[0]]; ok {
			return outcome
		}
	}
	return automation.SuccessOutcome(automation.JSONMap{"ok": true}, nil, []string{"done"})
}

func (f *fakeInvoker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeInvoker) apiKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type testEnv struct {
	pipeline    *Pipeline
	runs        run.Store
	items       run.ItemStore
	assets      run.AssetStore
	credentials credential.Store
	invoker     *fakeInvoker
	blobs       storage.BlobStorage
	masterKey   []byte
}

func setupPipeline(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &run.Run{}, &run.Item{}, &run.Asset{}, &credential.Credential{})

	log := logger.NewTestLogger()
	runs := run.NewMySQLStore(db, log)
	items := run.NewMySQLItemStore(db, log)
	assets := run.NewMySQLAssetStore(db, log)
	credentials := credential.NewMySQLStore(db, log)

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	invoker := newFakeInvoker()
	masterKey := credential.DeriveKey(testMasterPassphrase)

	cfg := Config{
		Workers:       1,
		ItemWorkers:   1,
		RunTimeout:    time.Minute,
		DefaultAPIKey: "default-engine-key",
		MasterKey:     masterKey,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &testEnv{
		pipeline:    NewPipeline(cfg, runs, items, assets, credentials, invoker, blobs, log),
		runs:        runs,
		items:       items,
		assets:      assets,
		credentials: credentials,
		invoker:     invoker,
		blobs:       blobs,
		masterKey:   masterKey,
	}
}

func testRequest(command string) *automation.Request {
	return &automation.Request{
		Operation: automation.OperationPerformActions,
		Commands:  []string{command},
		TargetURL: "https://portal.example.com",
		Headless:  true,
		Timeout:   60,
		Options:   automation.DefaultOptions(),
	}
}

// submitRun persists a pending run with one item per command.
func (env *testEnv) submitRun(t *testing.T, policy batch.Policy, credentialName string, commands ...string) *run.Run {
	t.Helper()
	ctx := context.Background()

	r := &run.Run{
		Policy:         policy,
		CredentialName: credentialName,
		TotalItems:     len(commands),
		Status:         run.StatusPending,
	}
	require.NoError(t, env.runs.Create(ctx, r))

	items := make([]*run.Item, 0, len(commands))
	for i, command := range commands {
		item, err := run.NewItem(r.ID, i, testRequest(command))
		require.NoError(t, err)
		items = append(items, item)
	}
	require.NoError(t, env.items.CreateBatch(ctx, items))
	return r
}

func (env *testEnv) createEngineCredential(t *testing.T, name, apiKey string) {
	t.Helper()
	encrypted, err := credential.EncryptCredentials(env.masterKey, map[string]string{
		credential.SecretAPIKey: apiKey,
	})
	require.NoError(t, err)
	require.NoError(t, env.credentials.Create(context.Background(), &credential.Credential{
		Name:            name,
		Kind:            credential.KindEngine,
		EncryptedSecret: encrypted,
		IsActive:        true,
	}))
}

func pngDataURI(payload string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestExecuteNextNoPendingRuns(t *testing.T) {
	env := setupPipeline(t, nil)

	claimed, err := env.pipeline.ExecuteNext(context.Background())
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, 0, env.invoker.calls())
}

func TestExecuteRunAllItemsSucceed(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	env.invoker.outcomes["open login page"] = automation.SuccessOutcome(
		automation.JSONMap{"title": "Login"},
		[]string{pngDataURI("shot-0")},
		[]string{"navigated", "captured"},
	)
	r := env.submitRun(t, batch.PolicyContinue, "", "open login page", "click submit")

	claimed, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.CompletedItems)
	assert.Equal(t, 0, got.FailedItems)
	assert.NotNil(t, got.CompletedAt)

	items, err := env.items.ListByRun(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, run.ItemStatusSucceeded, item.Status)
		assert.NotNil(t, item.StartedAt)
		assert.NotNil(t, item.CompletedAt)
		assert.NotNil(t, item.DurationMS)
	}
	assert.Equal(t, automation.JSONMap{"title": "Login"}, items[0].Payload)

	assert.Equal(t, []string{"default-engine-key", "default-engine-key"}, env.invoker.apiKeys())

	// Screenshot and log blobs archived for the first item
	exists, err := env.blobs.Exists(ctx, storage.ScreenshotKey(r.ID, 0, 0))
	require.NoError(t, err)
	assert.True(t, exists)

	assets, err := env.assets.ListByItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	types := map[run.AssetType]bool{}
	for _, a := range assets {
		types[a.AssetType] = true
	}
	assert.True(t, types[run.AssetTypeScreenshot])
	assert.True(t, types[run.AssetTypeLog])
}

func TestExecuteRunContinuePolicyRecordsFailure(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	env.invoker.outcomes["fill broken form"] = automation.FailureOutcome(
		automation.FailureEngine, "element \"Submit\" not found", `{"success": false}`)
	r := env.submitRun(t, batch.PolicyContinue, "", "open page", "fill broken form", "log out")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)
	assert.Equal(t, 2, got.CompletedItems)
	assert.Equal(t, 1, got.FailedItems)

	items, err := env.items.ListByRun(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, run.ItemStatusSucceeded, items[0].Status)
	assert.Equal(t, run.ItemStatusFailed, items[1].Status)
	assert.Equal(t, automation.FailureEngine, items[1].FailureKind)
	assert.Equal(t, "element \"Submit\" not found", items[1].FailureMessage)
	assert.Equal(t, run.ItemStatusSucceeded, items[2].Status)

	// The unparsed engine output is archived for the failed item
	exists, err := env.blobs.Exists(ctx, storage.RawOutputKey(r.ID, 1))
	require.NoError(t, err)
	assert.True(t, exists)

	assets, err := env.assets.ListByItem(ctx, items[1].ID)
	require.NoError(t, err)
	var sawRawOutput bool
	for _, a := range assets {
		if a.AssetType == run.AssetTypeRawOutput {
			sawRawOutput = true
		}
	}
	assert.True(t, sawRawOutput)
}

func TestExecuteRunFailFastSkipsRemainder(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	env.invoker.outcomes["open page"] = automation.FailureOutcome(
		automation.FailureTimeout, "engine exceeded budget", "")
	r := env.submitRun(t, batch.PolicyFailFast, "", "open page", "never runs", "never runs either")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)
	assert.Equal(t, 0, got.CompletedItems)
	assert.Equal(t, 1, got.FailedItems)

	items, err := env.items.ListByRun(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, run.ItemStatusFailed, items[0].Status)
	assert.Equal(t, run.ItemStatusSkipped, items[1].Status)
	assert.Equal(t, run.ItemStatusSkipped, items[2].Status)

	assert.Equal(t, 1, env.invoker.calls())
}

func TestExecuteRunUsesNamedCredential(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	env.createEngineCredential(t, "portal-prod", "portal-prod-key")
	env.submitRun(t, batch.PolicyContinue, "portal-prod", "open page")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"portal-prod-key"}, env.invoker.apiKeys())
}

func TestExecuteRunUnknownCredentialFailsRun(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	r := env.submitRun(t, batch.PolicyContinue, "no-such-credential", "open page", "click")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)

	items, err := env.items.ListByRun(ctx, r.ID)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, run.ItemStatusSkipped, item.Status)
	}
	assert.Equal(t, 0, env.invoker.calls())
}

func TestExecuteRunDeactivatedCredentialFailsRun(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	env.createEngineCredential(t, "portal-old", "retired-key")
	require.NoError(t, env.credentials.Update(ctx, "portal-old", credential.SetActive(false)))
	r := env.submitRun(t, batch.PolicyContinue, "portal-old", "open page")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)
	assert.Equal(t, 0, env.invoker.calls())
}

func TestExecuteRunArchivesScreenshotFiles(t *testing.T) {
	env := setupPipeline(t, nil)
	ctx := context.Background()

	scratch := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(scratch, []byte("png-bytes"), 0o644))

	env.invoker.outcomes["capture page"] = automation.SuccessOutcome(
		automation.JSONMap{}, []string{scratch}, nil)
	r := env.submitRun(t, batch.PolicyContinue, "", "capture page")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	exists, err := env.blobs.Exists(ctx, storage.ScreenshotKey(r.ID, 0, 0))
	require.NoError(t, err)
	assert.True(t, exists)

	// The engine scratch file is removed once archived
	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr))

	items, err := env.items.ListByRun(ctx, r.ID)
	require.NoError(t, err)
	assets, err := env.assets.ListByItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, run.AssetTypeScreenshot, assets[0].AssetType)
	assert.Equal(t, int64(len("png-bytes")), assets[0].FileSize)
}

func TestExecuteRunNotifiesOnFailure(t *testing.T) {
	var issued struct {
		sync.Mutex
		title string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Title string `json:"title"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		issued.Lock()
		issued.title = body.Title
		issued.Unlock()

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   9,
			"html_url": "https://github.com/acme/portal/issues/9",
		})
	}))
	defer server.Close()

	env := setupPipeline(t, func(cfg *Config) {
		cfg.NotifyProvider = notify.ProviderGitHub
		cfg.NotifyCredential = "gh-reporting"
	})
	ctx := context.Background()

	encrypted, err := credential.EncryptCredentials(env.masterKey, map[string]string{
		"token":      "ghp_test",
		"repository": "acme/portal",
		"base_url":   server.URL,
	})
	require.NoError(t, err)
	require.NoError(t, env.credentials.Create(ctx, &credential.Credential{
		Name:            "gh-reporting",
		Kind:            credential.KindIssueTracker,
		EncryptedSecret: encrypted,
		IsActive:        true,
	}))

	env.invoker.outcomes["break"] = automation.FailureOutcome(
		automation.FailureEngine, "element not found", "")
	r := env.submitRun(t, batch.PolicyContinue, "", "break")

	_, err = env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)
	assert.Equal(t, "https://github.com/acme/portal/issues/9", got.IssueURL)

	issued.Lock()
	assert.Contains(t, issued.title, "failed (1 of 1 items)")
	issued.Unlock()
}

func TestExecuteRunNotificationErrorLeavesRunRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	env := setupPipeline(t, func(cfg *Config) {
		cfg.NotifyProvider = notify.ProviderGitHub
		cfg.NotifyCredential = "gh-reporting"
	})
	ctx := context.Background()

	encrypted, err := credential.EncryptCredentials(env.masterKey, map[string]string{
		"token":      "ghp_test",
		"repository": "acme/portal",
		"base_url":   server.URL,
	})
	require.NoError(t, err)
	require.NoError(t, env.credentials.Create(ctx, &credential.Credential{
		Name:            "gh-reporting",
		Kind:            credential.KindIssueTracker,
		EncryptedSecret: encrypted,
		IsActive:        true,
	}))

	env.invoker.outcomes["break"] = automation.FailureOutcome(
		automation.FailureEngine, "element not found", "")
	r := env.submitRun(t, batch.PolicyContinue, "", "break")

	_, err = env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, got.Status)
	assert.Equal(t, 1, got.FailedItems)
	assert.Empty(t, got.IssueURL)
}

func TestExecuteRunSuccessDoesNotNotify(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	env := setupPipeline(t, func(cfg *Config) {
		cfg.NotifyProvider = notify.ProviderGitHub
		cfg.NotifyCredential = "gh-reporting"
	})
	ctx := context.Background()

	encrypted, err := credential.EncryptCredentials(env.masterKey, map[string]string{
		"token":      "ghp_test",
		"repository": "acme/portal",
		"base_url":   server.URL,
	})
	require.NoError(t, err)
	require.NoError(t, env.credentials.Create(ctx, &credential.Credential{
		Name:            "gh-reporting",
		Kind:            credential.KindIssueTracker,
		EncryptedSecret: encrypted,
		IsActive:        true,
	}))

	r := env.submitRun(t, batch.PolicyContinue, "", "open page")

	_, err = env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, got.Status)
	assert.Equal(t, int32(0), hits.Load())
}

func TestExecuteRunConcurrentItemWorkers(t *testing.T) {
	env := setupPipeline(t, func(cfg *Config) {
		cfg.ItemWorkers = 3
	})
	ctx := context.Background()

	r := env.submitRun(t, batch.PolicyContinue, "", "a", "b", "c", "d", "e")

	_, err := env.pipeline.ExecuteNext(ctx)
	require.NoError(t, err)

	got, err := env.runs.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, got.Status)
	assert.Equal(t, 5, got.CompletedItems)
	assert.Equal(t, 5, env.invoker.calls())
}
