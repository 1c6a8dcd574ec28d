package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/automation-bridge/batch"
	"github.com/hairizuan-noorazman/automation-bridge/cmd/bridge/handlers"
	"github.com/hairizuan-noorazman/automation-bridge/engine"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

var (
	runFile      string
	runPolicy    string
	runWorkers   int
	runAPIKey    string
	runOperation string
	runURL       string
	runCommands  []string
	runSchema    string
	runHeadless  bool
	runTimeout   int
)

// batchFile is the on-disk batch format: the same record shape the API
// accepts, plus an optional policy.
type batchFile struct {
	Policy string                       `json:"policy,omitempty"`
	Items  []handlers.SubmitItemRequest `json:"items"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a batch locally without the service",
	Long: `Executes automation requests against the configured engine and prints
the outcomes as JSON to stdout. Reads a batch file given with --file, or a
single request built from --operation, --url, and repeated --command flags.
Exits non-zero when a fail-fast batch aborts.`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "batch file path (JSON)")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "failure policy (continue or fail_fast)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "concurrent invocations (continue policy only)")
	runCmd.Flags().StringVar(&runAPIKey, "api-key", "", "engine API key (overrides config)")
	runCmd.Flags().StringVar(&runOperation, "operation", "", "operation kind for a single request")
	runCmd.Flags().StringVar(&runURL, "url", "", "starting URL for a single request")
	runCmd.Flags().StringArrayVar(&runCommands, "command", nil, "command for a single request (repeatable)")
	runCmd.Flags().StringVar(&runSchema, "schema", "", "extraction schema JSON for a single request")
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "run the browser headless")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "per-request timeout in seconds")
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
}

// loadBatch assembles the submitted records from the batch file or the
// single-request flags.
func loadBatch() (batchFile, error) {
	if runFile != "" {
		raw, err := os.ReadFile(runFile)
		if err != nil {
			return batchFile{}, fmt.Errorf("failed to read batch file: %w", err)
		}
		var b batchFile
		if err := json.Unmarshal(raw, &b); err != nil {
			return batchFile{}, fmt.Errorf("failed to parse batch file: %w", err)
		}
		return b, nil
	}

	if runOperation == "" {
		return batchFile{}, fmt.Errorf("either --file or --operation is required")
	}

	commandText := ""
	for _, c := range runCommands {
		commandText += c + "\n"
	}

	return batchFile{
		Items: []handlers.SubmitItemRequest{{
			Operation: runOperation,
			URL:       runURL,
			Commands:  commandText,
			Schema:    runSchema,
			Headless:  &runHeadless,
			Timeout:   runTimeout,
		}},
	}, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Keep stdout parseable: outcomes are the only JSON on the happy path.
	log := logger.NewLogrusLogger("error")

	b, err := loadBatch()
	if err != nil {
		return err
	}
	if len(b.Items) == 0 {
		return fmt.Errorf("batch has no items")
	}

	policy := batch.PolicyContinue
	if b.Policy != "" {
		policy = batch.Policy(b.Policy)
	}
	if runPolicy != "" {
		policy = batch.Policy(runPolicy)
	}
	if !policy.IsValid() {
		return fmt.Errorf("invalid policy %q: must be continue or fail_fast", string(policy))
	}

	requests, details := handlers.ValidateItems(b.Items)
	if details != nil {
		for _, d := range details {
			fmt.Fprintf(os.Stderr, "item %d: %s\n", d.Index, d.Message)
		}
		return fmt.Errorf("batch validation failed")
	}

	apiKey := cfg.Engine.APIKey
	if runAPIKey != "" {
		apiKey = runAPIKey
	}

	runner := engine.NewRunner(cfg.Engine.ScriptPath, log)
	if cfg.Engine.PythonBin != "" {
		runner.PythonBin = cfg.Engine.PythonBin
	}
	invoker := engine.NewBridge(runner, log)

	orchestrator := batch.NewOrchestrator(invoker, log)
	orchestrator.Workers = runWorkers

	results, procErr := orchestrator.Process(ctx, requests, apiKey, policy)

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}
	fmt.Println(string(out))

	if procErr != nil {
		return fmt.Errorf("batch aborted: %w", procErr)
	}
	return nil
}
