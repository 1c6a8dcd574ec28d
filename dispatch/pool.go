// Package dispatch executes submitted runs in the background. A worker
// pool claims pending runs from the database and a pipeline carries each
// claimed run end to end: engine invocation through the batch
// orchestrator, outcome persistence, artifact archiving, and failure
// notification.
package dispatch

import (
	"context"

	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// WorkerPool manages a pool of goroutines that execute runs from the
// database. Workers are woken via a channel when runs are submitted and
// claim them with a conditional UPDATE, so two workers never take the
// same run.
type WorkerPool struct {
	Work       chan struct{}
	maxWorkers int
	pipeline   *Pipeline
	logger     logger.Logger
}

// NewWorkerPool creates a new worker pool around the pipeline.
func NewWorkerPool(maxWorkers int, pipeline *Pipeline, log logger.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		Work:       make(chan struct{}, maxWorkers),
		maxWorkers: maxWorkers,
		pipeline:   pipeline,
		logger:     log,
	}
}

// Notify wakes a worker without blocking the caller. A dropped signal is
// harmless: every woken worker drains all claimable runs, not just one.
func (p *WorkerPool) Notify() {
	select {
	case p.Work <- struct{}{}:
	default:
	}
}

// Start spawns the worker goroutines and wakes one so runs submitted
// while the service was down get picked up.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info(ctx, "starting run worker pool", map[string]interface{}{
		"max_workers": p.maxWorkers,
	})
	for i := 0; i < p.maxWorkers; i++ {
		go p.worker(ctx, i)
	}
	p.Notify()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	p.logger.Info(ctx, "worker started", map[string]interface{}{
		"worker_id": id,
	})
	for {
		select {
		case <-p.Work:
			// Drain all claimable runs before going back to wait
			for {
				claimed, err := p.pipeline.ExecuteNext(ctx)
				if err != nil {
					p.logger.Error(ctx, "worker failed to claim run", map[string]interface{}{
						"worker_id": id,
						"error":     err.Error(),
					})
					break
				}
				if !claimed {
					break
				}
			}
		case <-ctx.Done():
			p.logger.Info(ctx, "worker stopping", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}
