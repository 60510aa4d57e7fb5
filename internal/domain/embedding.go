package domain

import "time"

// Provider labels recorded with each chunk's embedding metadata.
const (
	VectorProviderLexical = "stub-lexical"
	ModelNameLexical      = "keyword-overlap-v1"
	VectorProviderOpenAI  = "openai"
)

// EmbeddingMetadata records which scorer a chunk was indexed for.
type EmbeddingMetadata struct {
	ID             int64
	DocumentID     int64
	ChunkID        string
	VectorProvider string
	ModelName      string
	Payload        map[string]any
	CreatedAt      time.Time
}

// NewEmbeddingMetadata builds the metadata row for a freshly chunked chunk.
func NewEmbeddingMetadata(c Chunk, provider, model string) *EmbeddingMetadata {
	return &EmbeddingMetadata{
		DocumentID:     c.DocumentID,
		ChunkID:        c.ChunkID,
		VectorProvider: provider,
		ModelName:      model,
		Payload:        map[string]any{"char_count": len([]rune(c.Content))},
	}
}
