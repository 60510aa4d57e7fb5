package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chunkIDPattern = regexp.MustCompile(`^doc\d+_[0-9a-f]{24}$`)

func TestChunkConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultChunkConfig()},
		{name: "no overlap", cfg: ChunkConfig{MaxChars: 10, OverlapChars: 0}},
		{name: "zero max", cfg: ChunkConfig{MaxChars: 0, OverlapChars: 0}, wantErr: true},
		{name: "negative max", cfg: ChunkConfig{MaxChars: -5, OverlapChars: 0}, wantErr: true},
		{name: "negative overlap", cfg: ChunkConfig{MaxChars: 10, OverlapChars: -1}, wantErr: true},
		{name: "overlap equals max", cfg: ChunkConfig{MaxChars: 10, OverlapChars: 10}, wantErr: true},
		{name: "overlap above max", cfg: ChunkConfig{MaxChars: 10, OverlapChars: 20}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChunkText_InvalidConfig(t *testing.T) {
	chunks, err := ChunkText(1, "some text", ChunkConfig{MaxChars: 100, OverlapChars: 100})

	assert.Nil(t, chunks)
	assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
	de, ok := domain.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestChunkText_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \r\n"} {
		chunks, err := ChunkText(1, text, DefaultChunkConfig())
		require.NoError(t, err)
		assert.NotNil(t, chunks)
		assert.Empty(t, chunks)
	}
}

func TestChunkText_ShortText(t *testing.T) {
	chunks, err := ChunkText(7, "  Apple   reported\nrecord\tservices revenue.  ", DefaultChunkConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, int64(7), c.DocumentID)
	assert.Equal(t, 0, c.ChunkIndex)
	assert.Equal(t, "Apple reported record services revenue.", c.Content)
	assert.Equal(t, 0, c.Metadata[domain.MetaStartChar])
	assert.Equal(t, 39, c.Metadata[domain.MetaEndChar])
	assert.Regexp(t, chunkIDPattern, c.ChunkID)
	assert.True(t, strings.HasPrefix(c.ChunkID, "doc7_"))
}

func TestChunkText_Windows(t *testing.T) {
	text := strings.Repeat("x", 2000)

	chunks, err := ChunkText(3, text, DefaultChunkConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	wantOffsets := [][2]int{{0, 800}, {680, 1480}, {1360, 2000}}
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, wantOffsets[i][0], c.Metadata[domain.MetaStartChar], "chunk %d start", i)
		assert.Equal(t, wantOffsets[i][1], c.Metadata[domain.MetaEndChar], "chunk %d end", i)
		assert.LessOrEqual(t, len([]rune(c.Content)), 800)
	}
}

func TestChunkText_CoversWholeText(t *testing.T) {
	words := make([]string, 0, 500)
	for i := range 500 {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	text := strings.Join(words, " ")
	cfg := ChunkConfig{MaxChars: 97, OverlapChars: 13}

	chunks, err := ChunkText(1, text, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	total := len([]rune(NormalizeWhitespace(text)))
	covered := 0
	for i, c := range chunks {
		start := c.Metadata[domain.MetaStartChar].(int)
		end := c.Metadata[domain.MetaEndChar].(int)
		assert.LessOrEqual(t, start, covered, "gap before chunk %d", i)
		assert.LessOrEqual(t, end-start, cfg.MaxChars)
		if i > 0 {
			prevStart := chunks[i-1].Metadata[domain.MetaStartChar].(int)
			assert.Greater(t, start, prevStart, "chunk %d does not advance", i)
		}
		covered = end
	}
	assert.Equal(t, total, covered)
}

func TestChunkText_CountBound(t *testing.T) {
	tests := []struct {
		length  int
		max     int
		overlap int
	}{
		{length: 1, max: 10, overlap: 0},
		{length: 10, max: 10, overlap: 3},
		{length: 11, max: 10, overlap: 3},
		{length: 100, max: 10, overlap: 0},
		{length: 100, max: 10, overlap: 9},
		{length: 57, max: 8, overlap: 7},
		{length: 1000, max: 800, overlap: 120},
		{length: 2401, max: 800, overlap: 799},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("len=%d max=%d overlap=%d", tt.length, tt.max, tt.overlap), func(t *testing.T) {
			cfg := ChunkConfig{MaxChars: tt.max, OverlapChars: tt.overlap}
			chunks, err := ChunkText(1, strings.Repeat("a", tt.length), cfg)
			require.NoError(t, err)

			step := tt.max - tt.overlap
			bound := (tt.length + step - 1) / step
			assert.NotEmpty(t, chunks)
			assert.LessOrEqual(t, len(chunks), bound)
			assert.Equal(t, tt.length, chunks[len(chunks)-1].Metadata[domain.MetaEndChar])
		})
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	text := strings.Repeat("Revenue grew on strong iPhone demand. ", 60)

	first, err := ChunkText(42, text, DefaultChunkConfig())
	require.NoError(t, err)
	second, err := ChunkText(42, text, DefaultChunkConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)

	ids := make(map[string]struct{}, len(first))
	for _, c := range first {
		ids[c.ChunkID] = struct{}{}
	}
	assert.Len(t, ids, len(first), "chunk ids must be unique within a document")
}

func TestChunkText_CountsCharactersNotBytes(t *testing.T) {
	chunks, err := ChunkText(1, strings.Repeat("é", 10), ChunkConfig{MaxChars: 4, OverlapChars: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		assert.Equal(t, 4, len([]rune(c.Content)))
	}
	assert.Equal(t, 6, chunks[2].Metadata[domain.MetaStartChar])
	assert.Equal(t, 10, chunks[2].Metadata[domain.MetaEndChar])
}

func TestChunkText_TrimsWindowBodies(t *testing.T) {
	chunks, err := ChunkText(1, "aaaa bbbb", ChunkConfig{MaxChars: 5, OverlapChars: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "aaaa", chunks[0].Content)
	assert.Equal(t, 5, chunks[0].Metadata[domain.MetaEndChar])
	assert.Equal(t, "bbbb", chunks[1].Content)
	assert.Equal(t, 5, chunks[1].Metadata[domain.MetaStartChar])
}

func TestChunkID(t *testing.T) {
	sum := sha1.Sum([]byte("12:3:hello world"))
	want := "doc12_" + hex.EncodeToString(sum[:])[:24]

	assert.Equal(t, want, ChunkID(12, 3, "hello world"))
	assert.NotEqual(t, ChunkID(12, 3, "hello world"), ChunkID(12, 4, "hello world"))
	assert.NotEqual(t, ChunkID(12, 3, "hello world"), ChunkID(13, 3, "hello world"))
}

func TestMergeChunkMetadata(t *testing.T) {
	caller := map[string]any{
		"filing":             "10-K",
		domain.MetaStartChar: 999,
	}
	chunk := map[string]any{
		domain.MetaStartChar: 0,
		domain.MetaEndChar:   120,
	}

	merged := MergeChunkMetadata(caller, chunk)

	assert.Equal(t, "10-K", merged["filing"])
	assert.Equal(t, 0, merged[domain.MetaStartChar])
	assert.Equal(t, 120, merged[domain.MetaEndChar])
	assert.Equal(t, 999, caller[domain.MetaStartChar], "caller map must not be modified")
}

func TestMergeChunkMetadata_NilCaller(t *testing.T) {
	merged := MergeChunkMetadata(nil, map[string]any{domain.MetaEndChar: 5})
	assert.Equal(t, map[string]any{domain.MetaEndChar: 5}, merged)
}
