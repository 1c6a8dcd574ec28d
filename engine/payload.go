package engine

import "github.com/hairizuan-noorazman/automation-bridge/automation"

// payload is the single message written to the engine's stdin. Field names
// are the engine's wire spelling; the API key rides inside the message, never
// on the command line.
type payload struct {
	Operation          string      `json:"operation"`
	Commands           []string    `json:"commands"`
	URL                string      `json:"url"`
	Schema             interface{} `json:"schema,omitempty"`
	Headless           bool        `json:"headless"`
	Timeout            int         `json:"timeout"`
	APIKey             string      `json:"api_key"`
	CaptureScreenshots bool        `json:"capture_screenshots"`
	DetailedLogging    bool        `json:"detailed_logging"`
	IncludeStackTrace  bool        `json:"include_stack_trace"`
}

// buildPayload assembles the outbound message. Extraction operations without
// a schema get one derived from the command text so the engine always knows
// the desired output shape.
func buildPayload(req *automation.Request, apiKey string) payload {
	schema := req.Schema
	if schema == nil && req.Operation.Extracts() {
		schema = automation.AutoSchema(req.Commands, req.TargetURL)
	}

	return payload{
		Operation:          string(req.Operation),
		Commands:           req.Commands,
		URL:                req.TargetURL,
		Schema:             schema,
		Headless:           req.Headless,
		Timeout:            req.Timeout,
		APIKey:             apiKey,
		CaptureScreenshots: req.Options.CaptureScreenshots,
		DetailedLogging:    req.Options.DetailedLogging,
		IncludeStackTrace:  req.Options.IncludeStackTrace,
	}
}
