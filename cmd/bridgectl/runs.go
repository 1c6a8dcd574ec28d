package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage automation runs",
	}

	cmd.AddCommand(newRunsSubmitCmd())
	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsGetCmd())
	cmd.AddCommand(newRunsItemsCmd())
	cmd.AddCommand(newRunsScreenshotCmd())
	return cmd
}

func newRunsSubmitCmd() *cobra.Command {
	var file, policy, credName string
	var operation, targetURL, schema string
	var commands []string
	var headless bool
	var timeout int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new automation run",
		Long: `Submit a new automation run, either from a batch JSON file or from flags
describing a single item. The batch file holds the same JSON the API accepts:

  {"policy": "continue", "items": [{"operation": "perform_actions", ...}]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req SubmitRunRequest

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read batch file: %w", err)
				}
				if err := json.Unmarshal(data, &req); err != nil {
					return fmt.Errorf("failed to parse batch file: %w", err)
				}
			} else {
				if operation == "" {
					return fmt.Errorf("either --file or --operation is required")
				}
				item := SubmitItemRequest{
					Operation: operation,
					URL:       targetURL,
					Commands:  strings.Join(commands, "\n"),
					Schema:    schema,
					Timeout:   timeout,
				}
				if cmd.Flags().Changed("headless") {
					item.Headless = &headless
				}
				req.Items = []SubmitItemRequest{item}
			}

			if policy != "" {
				req.Policy = policy
			}
			if credName != "" {
				req.Credential = credName
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/runs", req)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var r RunResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Run submitted: %s (status: %s, items: %d)", r.ID, r.Status, r.TotalItems))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Batch JSON file")
	cmd.Flags().StringVar(&policy, "policy", "", "Failure policy: continue or fail_fast")
	cmd.Flags().StringVar(&credName, "credential", "", "Engine credential name")
	cmd.Flags().StringVar(&operation, "operation", "", "Operation for a single-item run: perform_actions, extract_data, or perform_and_extract")
	cmd.Flags().StringVar(&targetURL, "url", "", "Starting URL")
	cmd.Flags().StringArrayVar(&commands, "command", nil, "Plain-English command (repeatable)")
	cmd.Flags().StringVar(&schema, "schema", "", "Extraction schema as JSON text")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Per-item timeout in seconds (0 for default)")
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var status string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			query := url.Values{}
			if status != "" {
				query.Set("status", status)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			body, err := client.Get("/api/v1/runs", query)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var resp PaginatedResponse[RunResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"ID", "STATUS", "POLICY", "PROGRESS", "FAILED", "CREATED AT"}
			var rows [][]string
			for _, r := range resp.Items {
				rows = append(rows, []string{
					r.ID.String(),
					r.Status,
					r.Policy,
					fmt.Sprintf("%d/%d", r.CompletedItems, r.TotalItems),
					strconv.Itoa(r.FailedItems),
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d runs", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: pending, running, completed, or failed")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}

func newRunsGetCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a run by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/runs/%s", id), nil)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var r RunResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			startedAt := "-"
			if r.StartedAt != nil {
				startedAt = r.StartedAt.Format("2006-01-02 15:04:05")
			}
			completedAt := "-"
			if r.CompletedAt != nil {
				completedAt = r.CompletedAt.Format("2006-01-02 15:04:05")
			}
			credName := "-"
			if r.CredentialName != "" {
				credName = r.CredentialName
			}
			issueURL := "-"
			if r.IssueURL != "" {
				issueURL = r.IssueURL
			}

			printDetail([][]string{
				{"ID", r.ID.String()},
				{"Status", r.Status},
				{"Policy", r.Policy},
				{"Credential", credName},
				{"Total Items", strconv.Itoa(r.TotalItems)},
				{"Completed", strconv.Itoa(r.CompletedItems)},
				{"Failed", strconv.Itoa(r.FailedItems)},
				{"Issue URL", issueURL},
				{"Started At", startedAt},
				{"Completed At", completedAt},
				{"Created At", r.CreatedAt.Format("2006-01-02 15:04:05")},
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Run ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newRunsItemsCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List a run's items in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/runs/%s/items", id), nil)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var resp ListItemsResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"INDEX", "OPERATION", "STATUS", "DURATION", "FAILURE"}
			var rows [][]string
			for _, item := range resp.Items {
				duration := "-"
				if item.DurationMS != nil {
					duration = fmt.Sprintf("%dms", *item.DurationMS)
				}
				failure := "-"
				if item.FailureMessage != "" {
					failure = item.FailureMessage
					if len(failure) > 60 {
						failure = failure[:57] + "..."
					}
				}
				rows = append(rows, []string{
					strconv.Itoa(item.Index),
					item.Operation,
					item.Status,
					duration,
					failure,
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nTotal: %d items", resp.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Run ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newRunsScreenshotCmd() *cobra.Command {
	var id, output string
	var itemIndex, n int

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Download a screenshot captured during a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/runs/%s/items/%d/screenshots/%d", id, itemIndex, n), nil)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("%s-%d-%d.png", id, itemIndex, n)
			}
			if err := os.WriteFile(output, body, 0644); err != nil {
				return fmt.Errorf("failed to write screenshot: %w", err)
			}

			printMessage(fmt.Sprintf("Screenshot saved to %s (%d bytes)", output, len(body)))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Run ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().IntVar(&itemIndex, "item", 0, "Item index within the run")
	cmd.Flags().IntVar(&n, "n", 0, "Screenshot number within the item")
	cmd.Flags().StringVarP(&output, "output-file", "O", "", "Output file path (default <run>-<item>-<n>.png)")
	return cmd
}
