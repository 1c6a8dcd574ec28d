package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	flagServer string
	flagToken  string
	flagOutput string
	flagDebug  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridgectl",
		Short: "CLI for the Automation Command Bridge",
		Long:  "A command-line interface for submitting automation runs, drafting commands, and managing API tokens and credentials in the Automation Command Bridge.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "API server URL (env: BRIDGE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "API token (env: BRIDGE_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table or json")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug output")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bridgectl %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newTokensCmd())
	rootCmd.AddCommand(newCredentialsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func jsonOutput() bool {
	return flagOutput == "json"
}
