package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxSourceLength = 50
	MaxTickerLength = 16
	MaxTitleLength  = 300
)

// Document is an immutable source text plus its provenance.
type Document struct {
	ID          int64
	Source      string
	Ticker      *string
	Title       string
	Content     string
	PublishedAt *time.Time
	// Origin identifies where an imported document came from (e.g. "s3://bucket/key").
	// Empty for documents ingested through the API.
	Origin    string
	CreatedAt time.Time
}

// IngestDocumentInput describes one document of an ingestion batch.
type IngestDocumentInput struct {
	Source      string         `json:"source"`
	Ticker      *string        `json:"ticker,omitempty"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Origin      string         `json:"-"`
}

// Validate checks field bounds. Lengths are counted in characters.
func (in IngestDocumentInput) Validate() error {
	n := utf8.RuneCountInString(in.Source)
	if n < 1 || n > MaxSourceLength {
		return Wrap(ErrInvalidDocument, fmt.Sprintf("source must be 1-%d characters", MaxSourceLength))
	}
	if in.Ticker != nil && utf8.RuneCountInString(*in.Ticker) > MaxTickerLength {
		return Wrap(ErrInvalidDocument, fmt.Sprintf("ticker must be at most %d characters", MaxTickerLength))
	}
	n = utf8.RuneCountInString(in.Title)
	if n < 1 || n > MaxTitleLength {
		return Wrap(ErrInvalidDocument, fmt.Sprintf("title must be 1-%d characters", MaxTitleLength))
	}
	if in.Content == "" {
		return Wrap(ErrInvalidDocument, "content is required")
	}
	return nil
}

// NewDocument builds the Document persisted for an ingestion input.
func NewDocument(in IngestDocumentInput) *Document {
	return &Document{
		Source:      in.Source,
		Ticker:      normalizeTicker(in.Ticker),
		Title:       in.Title,
		Content:     in.Content,
		PublishedAt: in.PublishedAt,
		Origin:      in.Origin,
	}
}

func normalizeTicker(t *string) *string {
	if t == nil {
		return nil
	}
	v := strings.TrimSpace(*t)
	if v == "" {
		return nil
	}
	return &v
}

// IngestionSummary reports what one ingestion call wrote.
type IngestionSummary struct {
	DocumentsIngested int `json:"documents_ingested"`
	ChunksIngested    int `json:"chunks_ingested"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
