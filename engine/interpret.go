package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/automation-bridge/automation"
)

// Control fields of the engine's response message. Everything else in the
// body is payload and passes through untouched.
var controlFields = map[string]struct{}{
	"success":        {},
	"error":          {},
	"error_type":     {},
	"stack_trace":    {},
	"screenshots":    {},
	"execution_logs": {},
}

// Interpret classifies a raw invocation result into a tagged outcome.
//
// A malformed response on a zero exit is a hard failure, not a degraded
// success: the raw text is preserved on the failure for diagnostics. The
// engine exiting non-zero is always a process error, even when stdout holds
// a parseable body; the body's error message is folded into the failure
// message so nothing is lost.
func Interpret(raw RawResult) automation.Outcome {
	if raw.StartErr != nil {
		return automation.FailureOutcome(automation.FailureProcess, fmt.Sprintf("engine process could not run: %v", raw.StartErr), "")
	}

	stdout := strings.TrimSpace(string(raw.Stdout))
	stderr := strings.TrimSpace(string(raw.Stderr))

	if raw.TimedOut {
		msg := fmt.Sprintf("engine timed out after %s", raw.Duration.Round(time.Millisecond))
		return automation.FailureOutcome(automation.FailureTimeout, msg, stderr)
	}

	if raw.ExitCode != 0 {
		msg := fmt.Sprintf("engine exited with code %d", raw.ExitCode)
		body, bodyErr := decodeResponse(stdout)
		switch {
		case bodyErr == nil && body.errorMessage() != "":
			msg = fmt.Sprintf("%s: %s", msg, body.errorMessage())
		case stderr != "":
			msg = fmt.Sprintf("%s: %s", msg, stderr)
		}
		out := automation.FailureOutcome(automation.FailureProcess, msg, stdout)
		if bodyErr == nil {
			out.Failure.StackTrace = body.stackTrace()
			out.Logs = body.logs()
		}
		return out
	}

	if stdout == "" {
		msg := "engine produced no output"
		if stderr != "" {
			msg = fmt.Sprintf("%s: %s", msg, stderr)
		}
		return automation.FailureOutcome(automation.FailureProcess, msg, stderr)
	}

	body, err := decodeResponse(stdout)
	if err != nil {
		return automation.FailureOutcome(automation.FailureMalformedResponse, err.Error(), stdout)
	}

	if !body.success() {
		msg := body.errorMessage()
		if msg == "" {
			msg = "engine reported failure without detail"
		}
		out := automation.FailureOutcome(automation.FailureEngine, msg, stdout)
		out.Failure.StackTrace = body.stackTrace()
		out.Logs = body.logs()
		return out
	}

	return automation.SuccessOutcome(body.payload(), body.screenshots(), body.logs())
}

// response is the decoded engine message body.
type response map[string]interface{}

func decodeResponse(stdout string) (response, error) {
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &body); err != nil {
		return nil, fmt.Errorf("engine output is not a JSON object: %w", err)
	}
	v, ok := body["success"]
	if !ok {
		return nil, fmt.Errorf("engine output has no success field")
	}
	if _, ok := v.(bool); !ok {
		return nil, fmt.Errorf("engine output success field is not a boolean")
	}
	return response(body), nil
}

func (r response) success() bool {
	b, _ := r["success"].(bool)
	return b
}

func (r response) errorMessage() string {
	msg, _ := r["error"].(string)
	if errType, _ := r["error_type"].(string); errType != "" && msg != "" {
		return fmt.Sprintf("%s: %s", errType, msg)
	}
	return msg
}

func (r response) stackTrace() string {
	trace, _ := r["stack_trace"].(string)
	return trace
}

// payload returns the body with control fields stripped, so engine result
// fields like result and extracted_data reach the caller as-is.
func (r response) payload() automation.JSONMap {
	payload := make(automation.JSONMap, len(r))
	for key, value := range r {
		if _, control := controlFields[key]; control {
			continue
		}
		payload[key] = value
	}
	return payload
}

// screenshots flattens the screenshots field. Entries may be plain path
// strings or objects carrying an inline data URI under "data".
func (r response) screenshots() []string {
	entries, ok := r["screenshots"].([]interface{})
	if !ok {
		return []string{}
	}
	shots := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			shots = append(shots, v)
		case map[string]interface{}:
			if data, ok := v["data"].(string); ok && data != "" {
				shots = append(shots, data)
			}
		}
	}
	return shots
}

func (r response) logs() []string {
	entries, ok := r["execution_logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if line, ok := entry.(string); ok {
			logs = append(logs, line)
		}
	}
	return logs
}
