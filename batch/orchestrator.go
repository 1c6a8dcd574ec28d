package batch

import (
	"context"
	"sync"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// Orchestrator walks a batch in input order. Items are processed one at a
// time unless Workers is raised, and then only under PolicyContinue:
// fail-fast stays strictly sequential so the processed prefix is exact.
type Orchestrator struct {
	// Workers bounds concurrent invocations under PolicyContinue. Values
	// below 2 mean sequential processing.
	Workers int

	invoker Invoker
	logger  logger.Logger
}

// NewOrchestrator creates a sequential orchestrator.
func NewOrchestrator(invoker Invoker, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		Workers: 1,
		invoker: invoker,
		logger:  log,
	}
}

// Process runs every request and returns the items in input order.
//
// Under PolicyContinue the returned slice always has one item per input,
// failures recorded in place. Under PolicyFailFast the first failure stops
// the batch: the returned slice holds only the processed prefix, and the
// error identifies the failing item.
func (o *Orchestrator) Process(ctx context.Context, requests []*automation.Request, apiKey string, policy Policy) ([]Item, error) {
	if !policy.IsValid() {
		policy = PolicyContinue
	}

	o.logger.Info(ctx, "processing batch", map[string]interface{}{
		"items":  len(requests),
		"policy": string(policy),
	})

	if policy == PolicyFailFast {
		return o.processFailFast(ctx, requests, apiKey)
	}
	if o.Workers > 1 && len(requests) > 1 {
		return o.processConcurrent(ctx, requests, apiKey)
	}
	return o.processSequential(ctx, requests, apiKey)
}

// processOne validates then invokes a single request. Validation failures
// never reach the invoker, so no process is spawned for them.
func (o *Orchestrator) processOne(ctx context.Context, index int, req *automation.Request, apiKey string) Item {
	if err := req.Validate(); err != nil {
		o.logger.Warn(ctx, "batch item failed validation", map[string]interface{}{
			"index": index,
			"error": err.Error(),
		})
		return Item{Index: index, Request: req, Outcome: automation.FailureFromError(err)}
	}

	outcome := o.invoker.Execute(ctx, req, apiKey)
	return Item{Index: index, Request: req, Outcome: outcome}
}

func (o *Orchestrator) processSequential(ctx context.Context, requests []*automation.Request, apiKey string) ([]Item, error) {
	items := make([]Item, 0, len(requests))
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		items = append(items, o.processOne(ctx, i, req, apiKey))
	}
	return items, nil
}

func (o *Orchestrator) processConcurrent(ctx context.Context, requests []*automation.Request, apiKey string) ([]Item, error) {
	items := make([]Item, len(requests))
	sem := make(chan struct{}, o.Workers)
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(index int, r *automation.Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			// Each slot is written by exactly one goroutine.
			items[index] = o.processOne(ctx, index, r, apiKey)
		}(i, req)
	}

	wg.Wait()
	return items, ctx.Err()
}

func (o *Orchestrator) processFailFast(ctx context.Context, requests []*automation.Request, apiKey string) ([]Item, error) {
	items := make([]Item, 0, len(requests))
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		item := o.processOne(ctx, i, req, apiKey)
		items = append(items, item)

		if item.Outcome.Failure != nil {
			o.logger.Warn(ctx, "aborting batch on first failure", map[string]interface{}{
				"index": i,
				"kind":  string(item.Outcome.Failure.Kind),
			})
			return items, &ItemError{Index: i, Failure: item.Outcome.Failure}
		}
	}
	return items, nil
}
