package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newCommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Draft automation commands with AI",
	}

	cmd.AddCommand(newCommandsDraftCmd())
	cmd.AddCommand(newCommandsGetCmd())
	cmd.AddCommand(newCommandsListCmd())
	return cmd
}

func printDraft(d DraftResponse) {
	errMsg := "-"
	if d.ErrorMessage != nil {
		errMsg = *d.ErrorMessage
	}
	printDetail([][]string{
		{"ID", d.ID.String()},
		{"Status", d.Status},
		{"Goal", d.Goal},
		{"Model", d.ModelID},
		{"Error", errMsg},
		{"Created At", d.CreatedAt.Format("2006-01-02 15:04:05")},
	})

	if len(d.Commands) > 0 {
		printMessage("\nCommands:")
		for i, c := range d.Commands {
			printMessage(fmt.Sprintf("  %d. %s", i+1, c))
		}
	}
}

func newCommandsDraftCmd() *cobra.Command {
	var goal, targetURL string
	var wait bool
	var waitTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft a command list from a plain-English goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/commands/draft", DraftCommandsRequest{
				Goal: goal,
				URL:  targetURL,
			})
			if err != nil {
				return err
			}

			var d DraftResponse
			if err := json.Unmarshal(body, &d); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if !wait {
				if jsonOutput() {
					printRawJSON(body)
					return nil
				}
				printMessage(fmt.Sprintf("Draft started: %s (status: %s)", d.ID, d.Status))
				printMessage(fmt.Sprintf("Poll with: bridgectl commands get --id %s", d.ID))
				return nil
			}

			deadline := time.Now().Add(waitTimeout)
			for d.Status == "generating" || d.Status == "pending" {
				if time.Now().After(deadline) {
					return fmt.Errorf("timed out waiting for draft %s", d.ID)
				}
				time.Sleep(2 * time.Second)

				body, err = client.Get(fmt.Sprintf("/api/v1/commands/drafts/%s", d.ID), nil)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(body, &d); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			if d.Status == "failed" {
				errMsg := "unknown error"
				if d.ErrorMessage != nil {
					errMsg = *d.ErrorMessage
				}
				return fmt.Errorf("draft failed: %s", errMsg)
			}

			printDraft(d)
			return nil
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "Plain-English goal (required)")
	cmd.MarkFlagRequired("goal")
	cmd.Flags().StringVar(&targetURL, "url", "", "Target URL for the drafted commands")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for drafting to finish")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 2*time.Minute, "How long to wait with --wait")
	return cmd
}

func newCommandsGetCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a command draft by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/commands/drafts/%s", id), nil)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var d DraftResponse
			if err := json.Unmarshal(body, &d); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printDraft(d)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Draft ID (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func newCommandsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List command drafts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			body, err := client.Get("/api/v1/commands/drafts", query)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var resp PaginatedResponse[DraftResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"ID", "STATUS", "GOAL", "COMMANDS", "CREATED AT"}
			var rows [][]string
			for _, d := range resp.Items {
				goal := d.Goal
				if len(goal) > 50 {
					goal = goal[:47] + "..."
				}
				rows = append(rows, []string{
					d.ID.String(),
					d.Status,
					goal,
					strconv.Itoa(len(d.Commands)),
					d.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d drafts", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}
