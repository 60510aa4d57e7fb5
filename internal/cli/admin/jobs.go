package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/spf13/cobra"
)

// JobsCmd returns the jobs command group
func JobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run and inspect background jobs",
	}

	cmd.AddCommand(jobsRunCmd())
	cmd.AddCommand(jobsHistoryCmd())

	return cmd
}

func jobsRunCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run background jobs once",
		Long:  "Run every registered job once, or only the job named by --job, and record an audit row per run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := NewApp(ctx, appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer app.Close()

			var audits []*domain.JobAudit
			if name != "" {
				audit, err := app.Scheduler.RunByName(ctx, name)
				if audit != nil {
					audits = append(audits, audit)
				}
				if err != nil {
					return err
				}
			} else {
				audits, err = app.Scheduler.RunAll(ctx)
				if err != nil {
					return err
				}
			}

			printAudits(cmd.OutOrStdout(), audits)
			for _, a := range audits {
				if a.Status == domain.JobStatusFailed {
					return fmt.Errorf("job %s failed", a.JobName)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "job", "", "Run only this job (document_import, embedding_backfill)")

	return cmd
}

func jobsHistoryCmd() *cobra.Command {
	var (
		name  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent job runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := NewApp(ctx, appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer app.Close()

			audits, err := app.Audits.ListRecent(ctx, name, limit)
			if err != nil {
				return fmt.Errorf("failed to list job runs: %w", err)
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(audits)
			}
			if len(audits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No job runs recorded.")
				return nil
			}
			printAudits(cmd.OutOrStdout(), audits)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "job", "", "Only show runs of this job")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func printAudits(w io.Writer, audits []*domain.JobAudit) {
	for _, a := range audits {
		line := fmt.Sprintf("%-20s %-8s %6dms  records=%d  %s",
			a.JobName, a.Status, a.DurationMS, a.RecordsProcessed, a.StartedAt.Format(time.RFC3339))
		if msg, ok := a.Details["error"].(string); ok {
			line += "  error=" + msg
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
