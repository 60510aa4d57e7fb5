package domain

import "time"

// Citation is the externally visible view of a retrieved chunk.
type Citation struct {
	ChunkID     string     `json:"chunk_id"`
	DocumentID  int64      `json:"document_id"`
	Source      string     `json:"source"`
	Ticker      *string    `json:"ticker"`
	PublishedAt *time.Time `json:"published_at"`
	Excerpt     string     `json:"excerpt"`
	Score       float64    `json:"score"`
}

// QAResult is the answer to one question.
type QAResult struct {
	Answer     string     `json:"answer"`
	Confidence float64    `json:"confidence"`
	Citations  []Citation `json:"citations"`
}

// QAQuery is a question plus retrieval options.
type QAQuery struct {
	Question string
	TopK     int
	Filters  Filters
}
