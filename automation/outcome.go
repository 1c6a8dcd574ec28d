package automation

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an invocation did not produce a success payload.
type FailureKind string

const (
	// FailureValidation means the request never reached the engine.
	FailureValidation FailureKind = "validation"
	// FailureSchemaParse means the extraction schema text was not valid JSON.
	FailureSchemaParse FailureKind = "schema_parse"
	// FailureTimeout means the engine exceeded its wall-clock budget and was
	// forcibly terminated.
	FailureTimeout FailureKind = "timeout"
	// FailureProcess means the engine exited non-zero or produced no usable
	// output.
	FailureProcess FailureKind = "process_error"
	// FailureMalformedResponse means the engine exited zero but its output did
	// not match the expected message shape.
	FailureMalformedResponse FailureKind = "malformed_response"
	// FailureEngine means the engine completed and reported a logical failure
	// in a well-formed message body.
	FailureEngine FailureKind = "engine_error"
)

func (k FailureKind) IsValid() bool {
	switch k {
	case FailureValidation, FailureSchemaParse, FailureTimeout, FailureProcess, FailureMalformedResponse, FailureEngine:
		return true
	}
	return false
}

// Failure describes one failed invocation. RawOutput preserves whatever the
// engine wrote so nothing is silently dropped.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	RawOutput  string      `json:"raw_output,omitempty"`
	StackTrace string      `json:"stack_trace,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Outcome is the tagged result of one invocation. Exactly one variant is
// populated: Payload/Screenshots on success, Failure otherwise. Logs ride
// along with either variant when the engine reported execution logs.
type Outcome struct {
	Success     bool     `json:"success"`
	Payload     JSONMap  `json:"payload,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	Logs        []string `json:"logs,omitempty"`
	Failure     *Failure `json:"failure,omitempty"`
}

// SuccessOutcome builds the success variant. A nil screenshot list becomes an
// empty one so callers can range without nil checks.
func SuccessOutcome(payload JSONMap, screenshots, logs []string) Outcome {
	if screenshots == nil {
		screenshots = []string{}
	}
	return Outcome{
		Success:     true,
		Payload:     payload,
		Screenshots: screenshots,
		Logs:        logs,
	}
}

// FailureOutcome builds the failure variant.
func FailureOutcome(kind FailureKind, message, rawOutput string) Outcome {
	return Outcome{
		Failure: &Failure{
			Kind:      kind,
			Message:   message,
			RawOutput: rawOutput,
		},
	}
}

// FailureFromError classifies a pre-spawn error into an outcome. Validation
// and schema errors map to their own kinds; anything else is a process error.
func FailureFromError(err error) Outcome {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FailureOutcome(FailureValidation, ve.Error(), "")
	}
	var se *SchemaParseError
	if errors.As(err, &se) {
		return FailureOutcome(FailureSchemaParse, se.Error(), "")
	}
	var f *Failure
	if errors.As(err, &f) {
		return Outcome{Failure: f}
	}
	return FailureOutcome(FailureProcess, err.Error(), "")
}
