package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/financelm/internal/cli"
	"github.com/cloo-solutions/financelm/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "financelm",
		Short: "finance-lm CLI - ask questions about financial documents",
		Long: `finance-lm CLI ingests financial documents into a finance-lm server and
answers questions with citations.

Environment variables:
  FINANCELM_API_URL     API base URL (default: http://localhost:8080)
  FINANCELM_API_TOKEN   Bearer token when the server sets FINANCELM_API_TOKEN`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("api-token", "", "API bearer token (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.DocumentsCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.ConfigCmd())
	rootCmd.AddCommand(client.StatusCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
