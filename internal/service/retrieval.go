package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/telemetry"
)

// DefaultCandidateCap bounds how many chunks are fetched before ranking.
const DefaultCandidateCap = 300

// ChunkStore fetches persisted chunks matching every supplied filter,
// at most limit rows, in a consistent order.
type ChunkStore interface {
	FetchChunksByFilter(ctx context.Context, filters domain.Filters, limit int) ([]domain.Chunk, error)
}

// Retriever fetches a capped candidate set and ranks it for a query.
type Retriever struct {
	store        ChunkStore
	scorer       Scorer
	candidateCap int
}

// NewRetriever creates a Retriever. A nil scorer means lexical scoring and
// a non-positive cap means DefaultCandidateCap.
func NewRetriever(store ChunkStore, scorer Scorer, candidateCap int) *Retriever {
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	if candidateCap <= 0 {
		candidateCap = DefaultCandidateCap
	}
	return &Retriever{
		store:        store,
		scorer:       scorer,
		candidateCap: candidateCap,
	}
}

// Retrieve returns at most topK candidates with a positive score, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filters domain.Filters) ([]domain.RetrievedCandidate, error) {
	if topK <= 0 {
		return nil, domain.Wrap(domain.ErrInvalidTopK, fmt.Sprintf("top_k must be positive, got %d", topK))
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Ticker:    filters.Ticker,
		Source:    filters.Source,
		Operation: r.scorer.Kind(),
	})
	defer span.End()

	chunks, err := r.store.FetchChunksByFilter(ctx, filters, r.candidateCap)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	if len(chunks) == 0 {
		return []domain.RetrievedCandidate{}, nil
	}

	scores, err := r.scorer.Score(ctx, strings.TrimSpace(query), chunks)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to score candidates: %w", err)
	}

	return Rank(chunks, scores, topK), nil
}
