package admin

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/financelm/internal/mcpserver"
	"github.com/spf13/cobra"
)

// MCPCmd serves the ask and ingest tools over stdio for MCP clients.
func MCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long:  "Expose question answering and ingestion as MCP tools on stdin/stdout. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			log.SetOutput(os.Stderr)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer app.Close()

			srv, err := mcpserver.NewServer(app.Config.AppName, app.Config.AppVersion, &mcpserver.Ports{
				QA:     app.QA,
				Ingest: app.Ingestion,
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
