package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, score float64, content string) domain.RetrievedCandidate {
	return domain.RetrievedCandidate{
		ChunkID:    id,
		DocumentID: 1,
		Content:    content,
		Source:     "sec",
		Score:      score,
	}
}

func TestSynthesize_NoCandidates(t *testing.T) {
	result := Synthesize(nil)

	assert.Equal(t, NoMatchAnswer, result.Answer)
	assert.Equal(t, NoMatchConfidence, result.Confidence)
	assert.NotNil(t, result.Citations)
	assert.Empty(t, result.Citations)
}

func TestSynthesize_Confidence(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{name: "single partial match", scores: []float64{0.6667}, want: 0.683},
		{name: "two citations", scores: []float64{1, 0.5}, want: 0.9},
		{name: "three weak citations", scores: []float64{0.2, 0.1, 0.1}, want: 0.72},
		{name: "capped", scores: []float64{1, 1, 1, 1, 1}, want: 0.95},
		{name: "exact tie score rounds to even", scores: []float64{5.0 / 16}, want: 0.559},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]domain.RetrievedCandidate, len(tt.scores))
			for i, s := range tt.scores {
				in[i] = candidate(fmt.Sprintf("c%d", i), s, "text")
			}

			result := Synthesize(in)

			assert.InDelta(t, tt.want, result.Confidence, 1e-9)
			assert.GreaterOrEqual(t, result.Confidence, NoMatchConfidence)
			assert.LessOrEqual(t, result.Confidence, 0.95)
		})
	}
}

func TestSynthesize_Answer(t *testing.T) {
	in := []domain.RetrievedCandidate{
		candidate("a", 0.9, "first excerpt"),
		candidate("b", 0.8, "second excerpt"),
		candidate("c", 0.7, "third excerpt"),
		candidate("d", 0.6, "fourth excerpt"),
	}

	result := Synthesize(in)

	want := AnswerPreamble + "- first excerpt\n- second excerpt\n- third excerpt"
	assert.Equal(t, want, result.Answer)
	require.Len(t, result.Citations, 4)
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{
		result.Citations[0].ChunkID, result.Citations[1].ChunkID,
		result.Citations[2].ChunkID, result.Citations[3].ChunkID,
	})
}

func TestSynthesize_Citation(t *testing.T) {
	published := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("ab", 200)
	in := []domain.RetrievedCandidate{{
		ChunkID:     "doc1_abc",
		DocumentID:  9,
		Content:     long,
		Source:      "earnings_call",
		Ticker:      domain.StringPtr("MSFT"),
		PublishedAt: &published,
		Score:       0.33349,
	}}

	result := Synthesize(in)
	require.Len(t, result.Citations, 1)

	c := result.Citations[0]
	assert.Equal(t, "doc1_abc", c.ChunkID)
	assert.Equal(t, int64(9), c.DocumentID)
	assert.Equal(t, "earnings_call", c.Source)
	assert.Equal(t, "MSFT", domain.StringValue(c.Ticker))
	assert.Equal(t, published, *c.PublishedAt)
	assert.Equal(t, 0.333, c.Score)
	assert.Equal(t, long[:220], c.Excerpt)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short"))
	assert.Equal(t, strings.Repeat("x", 220), Excerpt(strings.Repeat("x", 220)))
	assert.Equal(t, strings.Repeat("€", 220), Excerpt(strings.Repeat("€", 300)))
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.667, round3(0.6666))
	assert.Equal(t, 1.0, round3(0.9999))
	assert.Equal(t, 0.5, round3(0.5))
	assert.Equal(t, 0.062, round3(0.0625))
	assert.Equal(t, 0.312, round3(0.3125))
	assert.Equal(t, 0.688, round3(0.6875))
	assert.Equal(t, 0.0, round3(0))
}

func TestSynthesize_TieScoreCitation(t *testing.T) {
	result := Synthesize([]domain.RetrievedCandidate{
		candidate("c0", 5.0/16, "text"),
		candidate("c1", 1.0/16, "text"),
	})

	require.Len(t, result.Citations, 2)
	assert.Equal(t, 0.312, result.Citations[0].Score)
	assert.Equal(t, 0.062, result.Citations[1].Score)
	assert.InDelta(t, 0.659, result.Confidence, 1e-9)
}
