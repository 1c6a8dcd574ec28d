package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

// Runner spawns one engine process per invocation. Every invocation is a
// fresh process; no engine state survives between requests.
type Runner struct {
	PythonBin    string
	EngineScript string
	logger       logger.Logger
}

func defaultPythonBin() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// NewRunner creates a runner for the given engine script.
func NewRunner(engineScript string, log logger.Logger) *Runner {
	return &Runner{
		PythonBin:    defaultPythonBin(),
		EngineScript: engineScript,
		logger:       log,
	}
}

// Invoke runs one request against the engine process and reports the raw,
// unclassified result. The request payload including the API key travels on
// stdin only; it never appears in arguments, logs, or errors. When the
// timeout expires the process is killed, never abandoned.
func (r *Runner) Invoke(ctx context.Context, req *automation.Request, apiKey string) RawResult {
	if strings.TrimSpace(r.EngineScript) == "" {
		return RawResult{StartErr: errors.New("engine script path is empty")}
	}

	body, err := json.Marshal(buildPayload(req, apiKey))
	if err != nil {
		return RawResult{StartErr: fmt.Errorf("marshal request: %w", err)}
	}

	timeout := time.Duration(req.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.PythonBin, r.EngineScript)
	cmd.Stdin = bytes.NewReader(body)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug(ctx, "starting engine process", map[string]interface{}{
		"operation": string(req.Operation),
		"script":    r.EngineScript,
		"timeout":   req.Timeout,
	})

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := RawResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: duration,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.TimedOut = true
	case ctx.Err() != nil:
		result.StartErr = ctx.Err()
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.StartErr = runErr
		}
	}

	r.logger.Debug(ctx, "engine process finished", map[string]interface{}{
		"exit_code":   result.ExitCode,
		"timed_out":   result.TimedOut,
		"duration_ms": duration.Milliseconds(),
		"stdout_len":  len(result.Stdout),
		"stderr_len":  len(result.Stderr),
	})

	return result
}
