package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/financelm/internal/domain"
)

// DocumentsCmd creates the documents command group.
func DocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Browse ingested documents",
	}

	cmd.AddCommand(documentsListCmd())
	cmd.AddCommand(documentsGetCmd())

	return cmd
}

func documentsListCmd() *cobra.Command {
	var params ListDocumentsParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			list, err := api.ListDocuments(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				output, _ := json.MarshalIndent(list, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			printDocumentList(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Ticker, "ticker", "", "Filter by ticker")
	cmd.Flags().StringVar(&params.Source, "source", "", "Filter by source")
	cmd.Flags().IntVarP(&params.Limit, "limit", "n", 20, "Maximum number of documents (max 100)")
	cmd.Flags().StringVar(&params.Cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func documentsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one document with its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid document id %q", args[0])
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			doc, err := api.GetDocument(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				output, _ := json.MarshalIndent(doc, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s\n", doc.Title)
			fmt.Fprintln(w, documentLabel(doc))
			fmt.Fprintln(w)
			fmt.Fprintln(w, doc.Content)
			return nil
		},
	}
}

func printDocumentList(w io.Writer, list *DocumentList) {
	if len(list.Documents) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	for i, doc := range list.Documents {
		fmt.Fprintf(w, "%d. %s\n", doc.ID, doc.Title)
		fmt.Fprintf(w, "   %s\n", documentLabel(&doc))
		if i < len(list.Documents)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
	if list.HasMore && list.Cursor != "" {
		fmt.Fprintf(w, "\nMore documents available. Use --cursor %s\n", list.Cursor)
	}
}

func documentLabel(doc *DocumentSummary) string {
	parts := []string{"source=" + doc.Source}
	if doc.Ticker != nil {
		parts = append(parts, "ticker="+*doc.Ticker)
	}
	if published := domain.StringValue(doc.PublishedAt); published != "" {
		parts = append(parts, "published="+published)
	}
	parts = append(parts, "created="+doc.CreatedAt)
	return strings.Join(parts, "  ")
}
