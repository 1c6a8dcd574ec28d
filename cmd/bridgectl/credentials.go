package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored credentials",
	}

	cmd.AddCommand(newCredentialsListCmd())
	cmd.AddCommand(newCredentialsCreateCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())
	return cmd
}

func newCredentialsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credentials (metadata only, secrets are never shown)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/credentials", nil)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var resp CredentialListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"NAME", "KIND", "ACTIVE", "CREATED AT"}
			var rows [][]string
			for _, c := range resp.Credentials {
				rows = append(rows, []string{
					c.Name,
					c.Kind,
					fmt.Sprintf("%v", c.IsActive),
					c.CreatedAt,
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nTotal: %d credentials", resp.Total))
			return nil
		},
	}
}

func newCredentialsCreateCmd() *cobra.Command {
	var name, kind string
	var secrets []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new credential",
		Long: `Create a new credential. Secrets are passed as repeatable key=value
pairs and are encrypted at rest; they cannot be read back through the API.

  bridgectl credentials create --name portal-prod --kind engine --secret api_key=sk-...
  bridgectl credentials create --name tracker --kind issue_tracker --secret token=ghp_... --secret repository=acme/portal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secretMap := make(map[string]string, len(secrets))
			for _, s := range secrets {
				key, value, found := strings.Cut(s, "=")
				if !found || key == "" {
					return fmt.Errorf("invalid --secret %q: expected key=value", s)
				}
				secretMap[key] = value
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			req := CreateCredentialRequest{
				Name:    name,
				Kind:    kind,
				Secrets: secretMap,
			}

			body, err := client.Post("/api/v1/credentials", req)
			if err != nil {
				return err
			}

			if jsonOutput() {
				printRawJSON(body)
				return nil
			}

			var c CredentialListItem
			if err := json.Unmarshal(body, &c); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Credential created: %s (kind: %s)", c.Name, c.Kind))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Credential name (required)")
	cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&kind, "kind", "", "Credential kind: engine, issue_tracker, or webhook (required)")
	cmd.MarkFlagRequired("kind")
	cmd.Flags().StringArrayVar(&secrets, "secret", nil, "Secret as key=value (repeatable, required)")
	cmd.MarkFlagRequired("secret")
	return cmd
}

func newCredentialsDeleteCmd() *cobra.Command {
	var name string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction(fmt.Sprintf("Delete credential %q?", name), yes) {
				printMessage("Aborted.")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			_, err = client.Delete(fmt.Sprintf("/api/v1/credentials/%s", name))
			if err != nil {
				return err
			}

			printMessage("Credential deleted successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Credential name (required)")
	cmd.MarkFlagRequired("name")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation")
	return cmd
}
