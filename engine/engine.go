// Package engine spawns one external automation engine process per request
// and turns its output into a tagged outcome. The engine receives a single
// JSON message on stdin and replies with a single JSON message on stdout;
// stderr carries non-fatal diagnostics.
package engine

import (
	"context"
	"time"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// RawResult is the unparsed product of one engine process invocation. The
// interpreter classifies it; the runner never does.
type RawResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
	StartErr error
	Duration time.Duration
}

// Bridge executes one automation request end to end: validate, invoke the
// engine process, interpret its output. It never panics past its boundary
// and always returns a tagged outcome.
type Bridge struct {
	runner *Runner
	logger logger.Logger
}

// NewBridge creates a bridge around the given runner.
func NewBridge(runner *Runner, log logger.Logger) *Bridge {
	return &Bridge{
		runner: runner,
		logger: log,
	}
}

// Execute runs one request against the engine. The API key is threaded
// through explicitly and never logged.
func (b *Bridge) Execute(ctx context.Context, req *automation.Request, apiKey string) automation.Outcome {
	if err := req.Validate(); err != nil {
		return automation.FailureFromError(err)
	}

	raw := b.runner.Invoke(ctx, req, apiKey)
	outcome := Interpret(raw)

	if outcome.Success {
		b.logger.Info(ctx, "engine invocation succeeded", map[string]interface{}{
			"operation":   string(req.Operation),
			"duration_ms": raw.Duration.Milliseconds(),
			"screenshots": len(outcome.Screenshots),
		})
	} else {
		b.logger.Warn(ctx, "engine invocation failed", map[string]interface{}{
			"operation":   string(req.Operation),
			"duration_ms": raw.Duration.Milliseconds(),
			"kind":        string(outcome.Failure.Kind),
		})
	}

	return outcome
}
