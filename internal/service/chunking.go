package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloo-solutions/financelm/internal/domain"
)

const (
	DefaultChunkMaxChars     = 800
	DefaultChunkOverlapChars = 120

	chunkDigestLength = 24
)

// ChunkConfig controls how document text is windowed.
type ChunkConfig struct {
	MaxChars     int
	OverlapChars int
}

// DefaultChunkConfig provides the standard window sizes.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:     DefaultChunkMaxChars,
		OverlapChars: DefaultChunkOverlapChars,
	}
}

// Validate rejects configurations that cannot make forward progress.
func (c ChunkConfig) Validate() error {
	if c.MaxChars <= 0 {
		return domain.Wrap(domain.ErrInvalidChunkConfig, fmt.Sprintf("max chars must be positive, got %d", c.MaxChars))
	}
	if c.OverlapChars < 0 {
		return domain.Wrap(domain.ErrInvalidChunkConfig, fmt.Sprintf("overlap chars must not be negative, got %d", c.OverlapChars))
	}
	if c.OverlapChars >= c.MaxChars {
		return domain.Wrap(domain.ErrInvalidChunkConfig,
			fmt.Sprintf("overlap chars (%d) must be smaller than max chars (%d)", c.OverlapChars, c.MaxChars))
	}
	return nil
}

// NormalizeWhitespace collapses every whitespace run to one space and trims the ends.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ChunkText splits a document into overlapping windows of at most
// cfg.MaxChars characters. Offsets in chunk metadata are character
// positions in the normalized text, end exclusive.
func ChunkText(documentID int64, text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clean := NormalizeWhitespace(text)
	if clean == "" {
		return []domain.Chunk{}, nil
	}

	runes := []rune(clean)
	chunks := make([]domain.Chunk, 0, len(runes)/(cfg.MaxChars-cfg.OverlapChars)+1)
	start := 0
	for idx := 0; start < len(runes); idx++ {
		end := min(len(runes), start+cfg.MaxChars)
		body := strings.TrimSpace(string(runes[start:end]))

		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			ChunkID:    ChunkID(documentID, idx, body),
			ChunkIndex: idx,
			Content:    body,
			Metadata: map[string]any{
				domain.MetaStartChar: start,
				domain.MetaEndChar:   end,
			},
		})

		if end >= len(runes) {
			break
		}
		start = max(0, end-cfg.OverlapChars)
	}

	return chunks, nil
}

// ChunkID derives the stable identifier of a chunk from its document,
// position and content.
func ChunkID(documentID int64, index int, content string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d:%d:%s", documentID, index, content)))
	return fmt.Sprintf("doc%d_%s", documentID, hex.EncodeToString(sum[:])[:chunkDigestLength])
}

// MergeChunkMetadata combines caller metadata with chunker metadata.
// Chunker keys (the character offsets) win on collision.
func MergeChunkMetadata(caller, chunk map[string]any) map[string]any {
	merged := make(map[string]any, len(caller)+len(chunk))
	for k, v := range caller {
		merged[k] = v
	}
	for k, v := range chunk {
		merged[k] = v
	}
	return merged
}
