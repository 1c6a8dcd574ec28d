package automation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrNilRequest = errors.New("request is nil")
)

// DefaultTimeoutSeconds is applied when a request does not carry a timeout.
const DefaultTimeoutSeconds = 300

// ValidationError reports a request field that failed validation. The field
// name matches the inbound record's field, so callers can surface it directly.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// SchemaParseError reports extraction schema text that is not valid JSON.
type SchemaParseError struct {
	Err error
}

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("schema is not valid JSON: %v", e.Err)
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}

type Operation string

const (
	OperationPerformActions    Operation = "perform_actions"
	OperationExtractData       Operation = "extract_data"
	OperationPerformAndExtract Operation = "perform_and_extract"
)

func (o Operation) IsValid() bool {
	switch o {
	case OperationPerformActions, OperationExtractData, OperationPerformAndExtract:
		return true
	}
	return false
}

// RequiresCommands reports whether the operation needs a non-empty command list.
func (o Operation) RequiresCommands() bool {
	return o == OperationPerformActions || o == OperationPerformAndExtract
}

// RequiresTarget reports whether the operation needs a starting URL.
func (o Operation) RequiresTarget() bool {
	return o == OperationExtractData
}

// Extracts reports whether the operation produces structured data and may
// carry an extraction schema.
func (o Operation) Extracts() bool {
	return o == OperationExtractData || o == OperationPerformAndExtract
}

// JSONMap is a custom type for JSON columns.
type JSONMap map[string]interface{}

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONMap: not a byte slice")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*j = m
	return nil
}

// Options toggles the optional outputs of one invocation. Field names match
// the engine's wire spelling.
type Options struct {
	CaptureScreenshots bool `json:"capture_screenshots"`
	DetailedLogging    bool `json:"detailed_logging"`
	IncludeStackTrace  bool `json:"include_stack_trace"`
}

// DefaultOptions returns the options applied when the inbound record carries
// none. Stack traces are opt-in.
func DefaultOptions() Options {
	return Options{
		CaptureScreenshots: true,
		DetailedLogging:    true,
		IncludeStackTrace:  false,
	}
}

// Request is one validated automation request. Exactly one external engine
// process is spawned per request.
type Request struct {
	Operation Operation   `json:"operation"`
	TargetURL string      `json:"url"`
	Commands  []string    `json:"commands"`
	Schema    interface{} `json:"schema,omitempty"`
	Headless  bool        `json:"headless"`
	Timeout   int         `json:"timeout"`
	Options   Options     `json:"options"`
}

// SplitCommands turns newline-separated command text into an ordered command
// list. Each line is trimmed and blank lines are discarded.
func SplitCommands(text string) []string {
	lines := strings.Split(text, "\n")
	commands := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		commands = append(commands, trimmed)
	}
	return commands
}

// ParseSchema parses raw extraction schema text into a JSON value. Empty text
// means no schema. Invalid JSON is a SchemaParseError, never silently ignored.
func ParseSchema(text string) (interface{}, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, &SchemaParseError{Err: err}
	}
	return v, nil
}

// NewRequest builds a validated Request from one inbound record. Command text
// is split per SplitCommands and schema text per ParseSchema.
func NewRequest(operation, targetURL, commandText, schemaText string, headless bool, timeoutSeconds int, opts Options) (*Request, error) {
	schema, err := ParseSchema(schemaText)
	if err != nil {
		return nil, err
	}

	if timeoutSeconds == 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	r := &Request{
		Operation: Operation(operation),
		TargetURL: strings.TrimSpace(targetURL),
		Commands:  SplitCommands(commandText),
		Schema:    schema,
		Headless:  headless,
		Timeout:   timeoutSeconds,
		Options:   opts,
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the request invariants. It is pure and spawns nothing.
func (r *Request) Validate() error {
	if r == nil {
		return ErrNilRequest
	}
	if !r.Operation.IsValid() {
		return &ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", string(r.Operation))}
	}
	if r.Operation.RequiresCommands() && len(r.Commands) == 0 {
		return &ValidationError{Field: "commands", Reason: "at least one command is required"}
	}
	if r.Operation.RequiresTarget() && r.TargetURL == "" {
		return &ValidationError{Field: "url", Reason: "starting URL is required"}
	}
	if r.TargetURL != "" {
		u, err := url.Parse(r.TargetURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Field: "url", Reason: fmt.Sprintf("%q is not a valid URL", r.TargetURL)}
		}
	}
	if r.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Reason: "timeout must be greater than zero"}
	}
	return nil
}
