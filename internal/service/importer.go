package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/loader"
)

// SourceObject is one importable file of a DocumentSource.
type SourceObject struct {
	Key        string
	Size       int64
	ModifiedAt time.Time
}

// DocumentSource lists and opens files to import.
type DocumentSource interface {
	// Scheme prefixes object keys to build document origins, e.g. "s3://bucket".
	Scheme() string
	List(ctx context.Context) ([]SourceObject, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// DocumentParser extracts title and text from a file.
type DocumentParser interface {
	Parse(name string, r io.Reader) (*loader.Document, error)
}

// DocumentIngester is the ingestion capability used by the importer.
type DocumentIngester interface {
	Ingest(ctx context.Context, docs []domain.IngestDocumentInput) (*domain.IngestionSummary, error)
}

// OriginChecker reports whether a document was already imported.
type OriginChecker interface {
	ExistsByOrigin(ctx context.Context, origin string) (bool, error)
}

// ImportDefaults fill provenance fields the files themselves do not carry.
type ImportDefaults struct {
	Source string
	Ticker string
}

// ImportResult counts the outcome of one import pass.
type ImportResult struct {
	Imported int
	Skipped  int
	Failed   int
	Chunks   int
}

// ImportService ingests files from a DocumentSource, once per origin.
type ImportService struct {
	ingester DocumentIngester
	origins  OriginChecker
	parser   DocumentParser
}

func NewImportService(ingester DocumentIngester, origins OriginChecker, parser DocumentParser) *ImportService {
	return &ImportService{
		ingester: ingester,
		origins:  origins,
		parser:   parser,
	}
}

// Import walks the source and ingests every new, parseable file as its own
// batch. Per-file failures are counted and logged; listing or lookup
// failures abort the pass.
func (s *ImportService) Import(ctx context.Context, src DocumentSource, defaults ImportDefaults) (*ImportResult, error) {
	objects, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", src.Scheme(), err)
	}

	result := &ImportResult{}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !loader.Supported(obj.Key) {
			result.Skipped++
			continue
		}

		origin := src.Scheme() + "/" + strings.TrimPrefix(obj.Key, "/")
		exists, err := s.origins.ExistsByOrigin(ctx, origin)
		if err != nil {
			return result, fmt.Errorf("failed to check origin %s: %w", origin, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		input, err := s.load(ctx, src, obj, defaults)
		if err != nil {
			log.Printf("import: %s: %v", origin, err)
			result.Failed++
			continue
		}
		if input == nil {
			result.Skipped++
			continue
		}
		input.Origin = origin

		summary, err := s.ingester.Ingest(ctx, []domain.IngestDocumentInput{*input})
		if err != nil {
			if errors.Is(err, domain.ErrDocumentAlreadyExists) {
				result.Skipped++
				continue
			}
			log.Printf("import: %s: %v", origin, err)
			result.Failed++
			continue
		}
		result.Imported += summary.DocumentsIngested
		result.Chunks += summary.ChunksIngested
	}

	return result, nil
}

func (s *ImportService) load(ctx context.Context, src DocumentSource, obj SourceObject, defaults ImportDefaults) (*domain.IngestDocumentInput, error) {
	rc, err := src.Open(ctx, obj.Key)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	doc, err := s.parser.Parse(obj.Key, rc)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	title := truncateRunes(strings.TrimSpace(doc.Title), domain.MaxTitleLength)
	if title == "" {
		title = truncateRunes(path.Base(obj.Key), domain.MaxTitleLength)
	}

	in := &domain.IngestDocumentInput{
		Source:  defaults.Source,
		Ticker:  domain.StringPtr(defaults.Ticker),
		Title:   title,
		Content: doc.Text,
		Metadata: map[string]any{
			"file_name": path.Base(obj.Key),
			"format":    doc.Format,
		},
	}
	if !obj.ModifiedAt.IsZero() {
		published := obj.ModifiedAt.UTC()
		in.PublishedAt = &published
	}
	return in, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
