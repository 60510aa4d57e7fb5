package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/financelm/internal/api/handlers"
	"github.com/cloo-solutions/financelm/internal/domain"
)

// filterFlags are the retrieval filters shared by ask and chat.
type filterFlags struct {
	topK     int
	ticker   string
	source   string
	dateFrom string
	dateTo   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "Number of citations, 1-20 (server default when 0)")
	cmd.Flags().StringVar(&f.ticker, "ticker", "", "Only use documents about this ticker")
	cmd.Flags().StringVar(&f.source, "source", "", "Only use documents from this source")
	cmd.Flags().StringVar(&f.dateFrom, "from", "", "Earliest publication date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.dateTo, "to", "", "Latest publication date (YYYY-MM-DD or RFC 3339)")
}

func (f *filterFlags) filters() (domain.Filters, error) {
	from, err := handlers.ParseDate("from", f.dateFrom)
	if err != nil {
		return domain.Filters{}, err
	}
	to, err := handlers.ParseDate("to", f.dateTo)
	if err != nil {
		return domain.Filters{}, err
	}
	filters := domain.Filters{
		Ticker:   strings.TrimSpace(f.ticker),
		Source:   strings.TrimSpace(f.source),
		DateFrom: from,
		DateTo:   to,
	}
	return filters, filters.Validate()
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Answers a question from the ingested documents and lists the cited chunks.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := flags.filters()
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			result, err := api.Ask(ctx, domain.QAQuery{
				Question: strings.Join(args, " "),
				TopK:     flags.topK,
				Filters:  filters,
			})
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			return printAnswer(cmd.OutOrStdout(), result, outputJSON)
		},
	}

	flags.register(cmd)

	return cmd
}

func printAnswer(w io.Writer, result *domain.QAResult, outputJSON bool) error {
	if outputJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintln(w, result.Answer)
	fmt.Fprintf(w, "\nConfidence: %.3f\n", result.Confidence)
	if len(result.Citations) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\nCitations:\n")
	for i, c := range result.Citations {
		label := c.Source
		if c.Ticker != nil {
			label += "/" + *c.Ticker
		}
		if c.PublishedAt != nil {
			label += " " + c.PublishedAt.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%d. [%s] document %d (%.3f)\n", i+1, label, c.DocumentID, c.Score)
		fmt.Fprintf(w, "   %s\n", c.Excerpt)
		fmt.Fprintf(w, "   Chunk: %s\n", c.ChunkID)
	}
	return nil
}
