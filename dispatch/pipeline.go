package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/batch"
	"github.com/hairizuan-noorazman/automation-bridge/credential"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/notify"
	"github.com/hairizuan-noorazman/automation-bridge/run"
	"github.com/hairizuan-noorazman/automation-bridge/storage"
)

// notifyTimeout bounds one failure notification delivery.
const notifyTimeout = 30 * time.Second

// Pipeline executes claimed runs end to end.
type Pipeline struct {
	config      Config
	runs        run.Store
	items       run.ItemStore
	assets      run.AssetStore
	credentials credential.Store
	invoker     batch.Invoker
	blobs       storage.BlobStorage
	logger      logger.Logger
}

// NewPipeline creates a new run pipeline.
func NewPipeline(
	config Config,
	runs run.Store,
	items run.ItemStore,
	assets run.AssetStore,
	credentials credential.Store,
	invoker batch.Invoker,
	blobs storage.BlobStorage,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		config:      config,
		runs:        runs,
		items:       items,
		assets:      assets,
		credentials: credentials,
		invoker:     invoker,
		blobs:       blobs,
		logger:      log,
	}
}

// ExecuteNext claims and executes the oldest pending run. It reports
// false when no run is waiting to be claimed.
func (p *Pipeline) ExecuteNext(ctx context.Context) (bool, error) {
	r, err := p.runs.ClaimNextPending(ctx)
	if err != nil {
		if errors.Is(err, run.ErrNoPendingRuns) {
			return false, nil
		}
		return false, err
	}
	p.Execute(ctx, r)
	return true, nil
}

// Execute carries one claimed run through invocation, persistence,
// archiving, and notification. The run must already be marked running.
func (p *Pipeline) Execute(ctx context.Context, r *run.Run) {
	p.logger.Info(ctx, "executing run", map[string]interface{}{
		"run_id": r.ID.String(),
		"items":  r.TotalItems,
		"policy": string(r.Policy),
	})

	items, err := p.items.ListByRun(ctx, r.ID)
	if err != nil {
		p.failRun(ctx, r.ID, fmt.Sprintf("failed to load run items: %v", err))
		return
	}
	if len(items) == 0 {
		p.failRun(ctx, r.ID, "run has no items")
		return
	}

	apiKey, err := p.resolveAPIKey(ctx, r)
	if err != nil {
		p.failRun(ctx, r.ID, fmt.Sprintf("failed to resolve engine credential: %v", err))
		p.skipItems(ctx, items, 0)
		return
	}

	// Rebuild the request snapshots. A snapshot that no longer parses gets
	// a placeholder request so indexes stay aligned; the recorded outcome
	// is taken from the parse error, not from the orchestrator.
	requests := make([]*automation.Request, len(items))
	broken := make(map[int]automation.Outcome)
	tracker := &trackingInvoker{
		inner:  p.invoker,
		store:  p.items,
		logger: p.logger,
		ids:    make(map[*automation.Request]uuid.UUID, len(items)),
	}
	for i, item := range items {
		req, err := item.Request()
		if err != nil {
			p.logger.Error(ctx, "run item snapshot is not executable", map[string]interface{}{
				"run_id":  r.ID.String(),
				"item_id": item.ID.String(),
				"index":   item.ItemIndex,
				"error":   err.Error(),
			})
			broken[i] = automation.FailureFromError(err)
			req = &automation.Request{}
		}
		requests[i] = req
		tracker.ids[req] = item.ID
	}

	orch := batch.NewOrchestrator(tracker, p.logger)
	orch.Workers = p.config.ItemWorkers

	// Invocation runs under the budget; persistence below uses the worker
	// context so a timed-out run still gets its outcomes recorded.
	execCtx := ctx
	if p.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, p.config.RunTimeout)
		defer cancel()
	}
	results, procErr := orch.Process(execCtx, requests, apiKey, r.Policy)
	if procErr != nil {
		var itemErr *batch.ItemError
		fields := map[string]interface{}{
			"run_id": r.ID.String(),
			"error":  procErr.Error(),
		}
		if errors.As(procErr, &itemErr) {
			fields["index"] = itemErr.Index
		}
		p.logger.Warn(ctx, "run aborted before all items", fields)
	}

	completed, failed := 0, 0
	for _, res := range results {
		item := items[res.Index]
		outcome := res.Outcome
		if b, ok := broken[res.Index]; ok {
			outcome = b
		}
		p.persistOutcome(ctx, item, outcome)
		p.archiveArtifacts(ctx, r, item, outcome)
		if outcome.Success {
			completed++
		} else {
			failed++
		}
	}
	p.skipItems(ctx, items, len(results))

	status := run.StatusCompleted
	if failed > 0 || len(results) < len(items) {
		status = run.StatusFailed
	}
	if err := p.runs.Complete(ctx, r.ID, status, completed, failed); err != nil {
		p.logger.Error(ctx, "failed to finalize run", map[string]interface{}{
			"run_id": r.ID.String(),
			"error":  err.Error(),
		})
		if err2 := p.runs.Update(ctx, r.ID, run.SetStatus(status), run.SetCounts(completed, failed)); err2 != nil {
			p.logger.Error(ctx, "failed to mark run status", map[string]interface{}{
				"run_id": r.ID.String(),
				"error":  err2.Error(),
			})
		}
	}

	p.logger.Info(ctx, "run finished", map[string]interface{}{
		"run_id":    r.ID.String(),
		"status":    string(status),
		"completed": completed,
		"failed":    failed,
		"skipped":   len(items) - len(results),
	})

	if status == run.StatusFailed {
		p.notifyFailure(ctx, r.ID)
	}
}

// trackingInvoker flips each item to running in the database at the
// moment its engine process is about to spawn. The orchestrator works
// with request pointers, so the mapping back to item rows is by pointer
// identity. The map is written before Process starts and only read from
// worker goroutines afterwards.
type trackingInvoker struct {
	inner  batch.Invoker
	store  run.ItemStore
	logger logger.Logger
	ids    map[*automation.Request]uuid.UUID
}

func (t *trackingInvoker) Execute(ctx context.Context, req *automation.Request, apiKey string) automation.Outcome {
	if id, ok := t.ids[req]; ok {
		if err := t.store.Start(ctx, id); err != nil {
			t.logger.Warn(ctx, "failed to mark item running", map[string]interface{}{
				"item_id": id.String(),
				"error":   err.Error(),
			})
		}
	}
	return t.inner.Execute(ctx, req, apiKey)
}

// persistOutcome records an item's outcome. Validation failures never
// reach the invoker, so their rows are still pending; those are started
// first and then recorded.
func (p *Pipeline) persistOutcome(ctx context.Context, item *run.Item, outcome automation.Outcome) {
	err := p.items.RecordOutcome(ctx, item.ID, outcome)
	if errors.Is(err, run.ErrItemNotRunning) {
		if startErr := p.items.Start(ctx, item.ID); startErr == nil {
			err = p.items.RecordOutcome(ctx, item.ID, outcome)
		}
	}
	if err != nil {
		p.logger.Error(ctx, "failed to record item outcome", map[string]interface{}{
			"item_id": item.ID.String(),
			"index":   item.ItemIndex,
			"error":   err.Error(),
		})
	}
}

// skipItems finalizes the items an aborted run never reached, starting
// at index from.
func (p *Pipeline) skipItems(ctx context.Context, items []*run.Item, from int) {
	for _, item := range items[from:] {
		if err := p.items.MarkSkipped(ctx, item.ID); err != nil {
			p.logger.Warn(ctx, "failed to mark item skipped", map[string]interface{}{
				"item_id": item.ID.String(),
				"index":   item.ItemIndex,
				"error":   err.Error(),
			})
		}
	}
}

// resolveAPIKey returns the engine API key for a run: the named engine
// credential's stored key, or the configured default when the run names
// none. Key material never appears in logs or error messages.
func (p *Pipeline) resolveAPIKey(ctx context.Context, r *run.Run) (string, error) {
	if r.CredentialName == "" {
		if p.config.DefaultAPIKey == "" {
			return "", fmt.Errorf("no engine credential named and no default key configured")
		}
		return p.config.DefaultAPIKey, nil
	}

	cred, err := p.credentials.GetByName(ctx, r.CredentialName)
	if err != nil {
		return "", fmt.Errorf("credential %q: %w", r.CredentialName, err)
	}
	if cred.Kind != credential.KindEngine {
		return "", fmt.Errorf("credential %q has kind %q, want %q", r.CredentialName, cred.Kind, credential.KindEngine)
	}
	if !cred.IsActive {
		return "", fmt.Errorf("credential %q is deactivated", r.CredentialName)
	}

	secrets, err := credential.DecryptCredentials(p.config.MasterKey, cred.EncryptedSecret)
	if err != nil {
		return "", fmt.Errorf("credential %q: %w", r.CredentialName, err)
	}
	key := secrets[credential.SecretAPIKey]
	if key == "" {
		return "", fmt.Errorf("credential %q has no %s entry", r.CredentialName, credential.SecretAPIKey)
	}
	return key, nil
}

// archiveArtifacts uploads an outcome's screenshots, engine logs, and
// raw output to blob storage and records an asset row per blob.
// Archiving is best effort; a failed upload is logged and skipped.
func (p *Pipeline) archiveArtifacts(ctx context.Context, r *run.Run, item *run.Item, outcome automation.Outcome) {
	for n, shot := range outcome.Screenshots {
		p.archiveScreenshot(ctx, r, item, n, shot)
	}

	if len(outcome.Logs) > 0 {
		data := []byte(strings.Join(outcome.Logs, "\n") + "\n")
		key := storage.ItemLogKey(r.ID, item.ItemIndex)
		p.archiveBlob(ctx, r, item, &run.Asset{
			AssetType: run.AssetTypeLog,
			BlobKey:   key,
			FileName:  "engine.log",
			FileSize:  int64(len(data)),
			MimeType:  "text/plain; charset=utf-8",
		}, data)
	}

	if outcome.Failure != nil && outcome.Failure.RawOutput != "" {
		data := []byte(outcome.Failure.RawOutput)
		key := storage.RawOutputKey(r.ID, item.ItemIndex)
		p.archiveBlob(ctx, r, item, &run.Asset{
			AssetType: run.AssetTypeRawOutput,
			BlobKey:   key,
			FileName:  "raw_output.txt",
			FileSize:  int64(len(data)),
			MimeType:  "text/plain; charset=utf-8",
		}, data)
	}
}

// archiveScreenshot handles both screenshot transports: a data URI is
// decoded and uploaded directly, a file path is uploaded and the
// engine's temporary file removed afterwards.
func (p *Pipeline) archiveScreenshot(ctx context.Context, r *run.Run, item *run.Item, n int, shot string) {
	key := storage.ScreenshotKey(r.ID, item.ItemIndex, n)
	asset := &run.Asset{
		AssetType: run.AssetTypeScreenshot,
		BlobKey:   key,
		FileName:  fmt.Sprintf("%d.png", n),
		MimeType:  "image/png",
	}

	mime, data, err := storage.DecodeDataURI(shot)
	switch {
	case err == nil:
		if mime != "" {
			asset.MimeType = mime
		}
		asset.FileSize = int64(len(data))
		p.archiveBlob(ctx, r, item, asset, data)
	case errors.Is(err, storage.ErrNotDataURI):
		p.archiveScreenshotFile(ctx, r, item, asset, shot)
	default:
		p.logger.Warn(ctx, "discarding malformed screenshot", map[string]interface{}{
			"item_id": item.ID.String(),
			"index":   n,
			"error":   err.Error(),
		})
	}
}

func (p *Pipeline) archiveScreenshotFile(ctx context.Context, r *run.Run, item *run.Item, asset *run.Asset, path string) {
	f, err := os.Open(path)
	if err != nil {
		p.logger.Warn(ctx, "screenshot file not readable", map[string]interface{}{
			"item_id": item.ID.String(),
			"error":   err.Error(),
		})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		p.logger.Warn(ctx, "screenshot file not readable", map[string]interface{}{
			"item_id": item.ID.String(),
			"error":   err.Error(),
		})
		return
	}
	asset.FileSize = info.Size()

	if err := p.blobs.Upload(ctx, asset.BlobKey, f); err != nil {
		p.logger.Error(ctx, "failed to upload artifact", map[string]interface{}{
			"item_id":  item.ID.String(),
			"blob_key": asset.BlobKey,
			"error":    err.Error(),
		})
		return
	}

	// The engine writes screenshots to scratch space; once archived the
	// original is noise.
	if err := os.Remove(path); err != nil {
		p.logger.Warn(ctx, "failed to remove engine scratch file", map[string]interface{}{
			"error": err.Error(),
		})
	}

	p.createAsset(ctx, r, item, asset)
}

func (p *Pipeline) archiveBlob(ctx context.Context, r *run.Run, item *run.Item, asset *run.Asset, data []byte) {
	if err := p.blobs.Upload(ctx, asset.BlobKey, bytes.NewReader(data)); err != nil {
		p.logger.Error(ctx, "failed to upload artifact", map[string]interface{}{
			"item_id":  item.ID.String(),
			"blob_key": asset.BlobKey,
			"error":    err.Error(),
		})
		return
	}
	p.createAsset(ctx, r, item, asset)
}

func (p *Pipeline) createAsset(ctx context.Context, r *run.Run, item *run.Item, asset *run.Asset) {
	asset.RunID = r.ID
	asset.ItemID = item.ID
	asset.UploadedAt = time.Now()
	if err := p.assets.Create(ctx, asset); err != nil {
		p.logger.Error(ctx, "failed to record asset", map[string]interface{}{
			"item_id":  item.ID.String(),
			"blob_key": asset.BlobKey,
			"error":    err.Error(),
		})
	}
}

// notifyFailure reports a failed run on the configured channel and
// records the report URL. Notification is best effort and never changes
// the run's outcome.
func (p *Pipeline) notifyFailure(ctx context.Context, runID uuid.UUID) {
	notifier, err := p.buildNotifier(ctx)
	if err != nil {
		p.logger.Error(ctx, "failure notifier unavailable", map[string]interface{}{
			"run_id": runID.String(),
			"error":  err.Error(),
		})
		return
	}
	if notifier == nil {
		return
	}

	r, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		p.logger.Error(ctx, "failed to reload run for notification", map[string]interface{}{
			"run_id": runID.String(),
			"error":  err.Error(),
		})
		return
	}
	items, err := p.items.ListByRun(ctx, runID)
	if err != nil {
		p.logger.Error(ctx, "failed to load items for notification", map[string]interface{}{
			"run_id": runID.String(),
			"error":  err.Error(),
		})
		return
	}
	var failed []*run.Item
	for _, item := range items {
		if item.Status == run.ItemStatusFailed {
			failed = append(failed, item)
		}
	}

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	url, err := notifier.NotifyRunFailure(notifyCtx, r, failed)
	if err != nil {
		p.logger.Error(ctx, "failure notification not delivered", map[string]interface{}{
			"run_id": runID.String(),
			"error":  err.Error(),
		})
		return
	}
	p.logger.Info(ctx, "failure notification delivered", map[string]interface{}{
		"run_id": runID.String(),
		"url":    url,
	})

	if url == "" {
		return
	}
	if err := p.runs.Update(ctx, runID, run.SetIssueURL(url)); err != nil {
		p.logger.Error(ctx, "failed to record issue url", map[string]interface{}{
			"run_id": runID.String(),
			"error":  err.Error(),
		})
	}
}

// buildNotifier resolves the notification credential and constructs the
// configured notifier. A nil notifier with nil error means notification
// is disabled.
func (p *Pipeline) buildNotifier(ctx context.Context) (notify.Notifier, error) {
	provider := p.config.NotifyProvider
	if provider == notify.ProviderNone || provider == "" {
		return nil, nil
	}
	if p.config.NotifyCredential == "" {
		return nil, fmt.Errorf("notify provider %q set but no credential named", provider)
	}

	cred, err := p.credentials.GetByName(ctx, p.config.NotifyCredential)
	if err != nil {
		return nil, fmt.Errorf("credential %q: %w", p.config.NotifyCredential, err)
	}
	if !cred.IsActive {
		return nil, fmt.Errorf("credential %q is deactivated", p.config.NotifyCredential)
	}
	secrets, err := credential.DecryptCredentials(p.config.MasterKey, cred.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("credential %q: %w", p.config.NotifyCredential, err)
	}
	return notify.NewNotifier(provider, secrets)
}

// failRun marks a run failed before any of its items produced outcomes.
func (p *Pipeline) failRun(ctx context.Context, runID uuid.UUID, reason string) {
	p.logger.Error(ctx, "run execution failed", map[string]interface{}{
		"run_id": runID.String(),
		"reason": reason,
	})

	if err := p.runs.Complete(ctx, runID, run.StatusFailed, 0, 0); err != nil {
		// The run may not have reached running; set the status directly.
		if err2 := p.runs.Update(ctx, runID, run.SetStatus(run.StatusFailed)); err2 != nil {
			p.logger.Error(ctx, "failed to mark run as failed", map[string]interface{}{
				"run_id": runID.String(),
				"error":  err2.Error(),
			})
		}
	}
}
