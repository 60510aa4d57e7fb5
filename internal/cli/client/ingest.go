package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/financelm/internal/api/handlers"
	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/loader"
)

type ingestOptions struct {
	source      string
	ticker      string
	publishedAt string
	batchSize   int
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Ingest documents",
		Long: `Parses local files and sends them to the server for chunking and indexing.

Supported formats: .txt, .md, .html, .pdf, .docx. A .json file holding
{"documents": [...]} is sent as is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := buildIngestInputs(args, opts)
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			total := domain.IngestionSummary{}
			for start := 0; start < len(docs); start += opts.batchSize {
				end := min(start+opts.batchSize, len(docs))
				ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
				summary, err := api.Ingest(ctx, docs[start:end])
				cancel()
				if err != nil {
					return fmt.Errorf("ingest failed after %d documents: %w", total.DocumentsIngested, err)
				}
				total.DocumentsIngested += summary.DocumentsIngested
				total.ChunksIngested += summary.ChunksIngested
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				output, _ := json.MarshalIndent(total, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d documents (%d chunks)\n", total.DocumentsIngested, total.ChunksIngested)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Source label for parsed files (e.g. sec, news)")
	cmd.Flags().StringVarP(&opts.ticker, "ticker", "t", "", "Ticker for parsed files")
	cmd.Flags().StringVar(&opts.publishedAt, "published-at", "", "Publication date for parsed files (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 20, "Documents per request")

	return cmd
}

// buildIngestInputs turns the given paths into ingest inputs. Parsed files
// need a source; JSON batches carry their own.
func buildIngestInputs(paths []string, opts ingestOptions) ([]domain.IngestDocumentInput, error) {
	if opts.batchSize <= 0 {
		return nil, fmt.Errorf("--batch-size must be positive")
	}
	published, err := handlers.ParseDate("published-at", opts.publishedAt)
	if err != nil {
		return nil, err
	}

	registry := loader.Registry{}
	var docs []domain.IngestDocumentInput
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			batch, err := readJSONBatch(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, batch...)
			continue
		}

		if strings.TrimSpace(opts.source) == "" {
			return nil, fmt.Errorf("--source is required to ingest %s", path)
		}

		doc, err := parseFile(registry, path)
		if err != nil {
			return nil, err
		}
		in := domain.IngestDocumentInput{
			Source:      opts.source,
			Title:       doc.Title,
			Content:     doc.Text,
			PublishedAt: published,
			Metadata: map[string]any{
				"file_name": filepath.Base(path),
				"format":    doc.Format,
			},
		}
		if t := strings.TrimSpace(opts.ticker); t != "" {
			in.Ticker = &t
		}
		docs = append(docs, in)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to ingest")
	}
	return docs, nil
}

func parseFile(registry loader.Registry, path string) (*loader.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := registry.Parse(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%s has no extractable text", path)
	}
	return doc, nil
}

func readJSONBatch(path string) ([]domain.IngestDocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var req handlers.IngestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return req.Documents, nil
}
