package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/config"
	"github.com/cloo-solutions/financelm/internal/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply the embedded schema migrations for the backend selected by FINANCELM_DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.Open(context.Background(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			return db.Migrate()
		},
	}
}
