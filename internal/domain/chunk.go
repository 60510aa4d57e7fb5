package domain

import "time"

// Chunk metadata keys written by the chunker.
const (
	MetaStartChar = "start_char"
	MetaEndChar   = "end_char"
)

// Chunk is a contiguous window of a document's normalized text.
// Source, Ticker and PublishedAt are copied from the parent document so
// filters never need a join.
type Chunk struct {
	ID          int64
	DocumentID  int64
	ChunkID     string
	ChunkIndex  int
	Content     string
	Source      string
	Ticker      *string
	PublishedAt *time.Time
	Metadata    map[string]any
	// Embedding is only populated by backends that store vectors.
	Embedding []float32
	CreatedAt time.Time
}

// Filters restrict candidate retrieval. Zero values mean no constraint.
type Filters struct {
	Ticker   string
	Source   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Validate rejects an inverted date range.
func (f Filters) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return ErrInvalidDateRange
	}
	return nil
}

// Matches reports whether a chunk satisfies every supplied filter.
func (f Filters) Matches(c Chunk) bool {
	if f.Ticker != "" && (c.Ticker == nil || *c.Ticker != f.Ticker) {
		return false
	}
	if f.Source != "" && c.Source != f.Source {
		return false
	}
	if f.DateFrom != nil && (c.PublishedAt == nil || c.PublishedAt.Before(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && (c.PublishedAt == nil || c.PublishedAt.After(*f.DateTo)) {
		return false
	}
	return true
}

// RetrievedCandidate is a chunk scored for one query. Never persisted.
type RetrievedCandidate struct {
	ChunkID     string
	DocumentID  int64
	Content     string
	Source      string
	Ticker      *string
	PublishedAt *time.Time
	Score       float64
}

// NewRetrievedCandidate projects a chunk with its score.
func NewRetrievedCandidate(c Chunk, score float64) RetrievedCandidate {
	return RetrievedCandidate{
		ChunkID:     c.ChunkID,
		DocumentID:  c.DocumentID,
		Content:     c.Content,
		Source:      c.Source,
		Ticker:      c.Ticker,
		PublishedAt: c.PublishedAt,
		Score:       score,
	}
}
