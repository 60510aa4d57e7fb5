package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/financelm/internal/cli"
	"github.com/cloo-solutions/financelm/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "financelmd",
		Short:        "finance-lm server and maintenance commands",
		Long:         "finance-lm daemon for running the API server, migrations, background jobs and the MCP tool server",
		SilenceUsage: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.JobsCmd())
	rootCmd.AddCommand(admin.MCPCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
