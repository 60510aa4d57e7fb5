package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/cloo-solutions/financelm/internal/domain"
)

const (
	NoMatchAnswer     = "No supporting documents matched the request filters and query terms."
	NoMatchConfidence = 0.05
	AnswerPreamble    = "Grounded summary from retrieved documents:\n"

	excerptMaxChars   = 220
	summaryCitations  = 3
	maxConfidence     = 0.95
	confidenceBase    = 0.35
	confidencePerCite = 0.1
	confidenceBest    = 0.35
)

// Synthesize turns ranked candidates into a templated answer with citations.
func Synthesize(retrieved []domain.RetrievedCandidate) domain.QAResult {
	if len(retrieved) == 0 {
		return domain.QAResult{
			Answer:     NoMatchAnswer,
			Confidence: NoMatchConfidence,
			Citations:  []domain.Citation{},
		}
	}

	citations := make([]domain.Citation, len(retrieved))
	best := 0.0
	for i, item := range retrieved {
		citations[i] = domain.Citation{
			ChunkID:     item.ChunkID,
			DocumentID:  item.DocumentID,
			Source:      item.Source,
			Ticker:      item.Ticker,
			PublishedAt: item.PublishedAt,
			Excerpt:     Excerpt(item.Content),
			Score:       round3(item.Score),
		}
		if i == 0 || citations[i].Score > best {
			best = citations[i].Score
		}
	}

	lines := make([]string, 0, summaryCitations)
	for _, c := range citations[:min(summaryCitations, len(citations))] {
		lines = append(lines, "- "+c.Excerpt)
	}

	confidence := round3(confidenceBase + confidencePerCite*float64(len(citations)) + confidenceBest*best)
	return domain.QAResult{
		Answer:     AnswerPreamble + strings.Join(lines, "\n"),
		Confidence: math.Min(maxConfidence, confidence),
		Citations:  citations,
	}
}

// Excerpt returns the first 220 characters of content.
func Excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptMaxChars {
		return content
	}
	return string(runes[:excerptMaxChars])
}

// round3 rounds the exact binary value to three decimals, ties to even.
func round3(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	return r
}
