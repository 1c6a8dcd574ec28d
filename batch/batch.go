// Package batch processes ordered sequences of automation requests with
// per-item failure isolation. One item's failure never affects a sibling's
// invocation or recorded result.
package batch

import (
	"context"
	"fmt"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
)

// Policy decides what one item's failure does to the rest of the batch.
type Policy string

const (
	// PolicyContinue records the failure on the item and keeps going.
	PolicyContinue Policy = "continue"
	// PolicyFailFast aborts the batch at the first failure.
	PolicyFailFast Policy = "fail_fast"
)

func (p Policy) IsValid() bool {
	switch p {
	case PolicyContinue, PolicyFailFast:
		return true
	}
	return false
}

// Item pairs an input index with its request and, after processing, its
// outcome. The index always matches the position in the input sequence.
type Item struct {
	Index   int                 `json:"index"`
	Request *automation.Request `json:"request"`
	Outcome automation.Outcome  `json:"outcome"`
}

// ItemError reports which item aborted a fail-fast batch.
type ItemError struct {
	Index   int
	Failure *automation.Failure
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Failure.Error())
}

func (e *ItemError) Unwrap() error {
	return e.Failure
}

// Invoker runs one validated request against the engine. The batch package
// validates before calling it, so a spy invoker's call count equals the
// number of processes that would have been spawned.
type Invoker interface {
	Execute(ctx context.Context, req *automation.Request, apiKey string) automation.Outcome
}
