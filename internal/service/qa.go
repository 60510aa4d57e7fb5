package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/telemetry"
)

const (
	DefaultTopK       = 5
	MaxTopK           = 20
	MinQuestionLength = 3
)

// CandidateRetriever is the retrieval capability the QA service depends on.
type CandidateRetriever interface {
	Retrieve(ctx context.Context, query string, topK int, filters domain.Filters) ([]domain.RetrievedCandidate, error)
}

// QAService answers questions from the indexed chunks.
type QAService struct {
	retriever   CandidateRetriever
	defaultTopK int
}

// NewQAService creates a QAService. A non-positive defaultTopK falls back to DefaultTopK.
func NewQAService(retriever CandidateRetriever, defaultTopK int) *QAService {
	if defaultTopK <= 0 || defaultTopK > MaxTopK {
		defaultTopK = DefaultTopK
	}
	return &QAService{retriever: retriever, defaultTopK: defaultTopK}
}

// Answer validates the query, retrieves candidates and synthesizes the result.
func (s *QAService) Answer(ctx context.Context, q domain.QAQuery) (*domain.QAResult, error) {
	question := strings.TrimSpace(q.Question)
	if utf8.RuneCountInString(question) < MinQuestionLength {
		return nil, domain.ErrInvalidQuestion
	}

	topK := q.TopK
	if topK == 0 {
		topK = s.defaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return nil, domain.Wrap(domain.ErrInvalidTopK, fmt.Sprintf("top_k must be between 1 and %d", MaxTopK))
	}
	if err := q.Filters.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "QAService.Answer", telemetry.SpanAttributes{
		Ticker: q.Filters.Ticker,
		Source: q.Filters.Source,
	})
	defer span.End()

	retrieved, err := s.retriever.Retrieve(ctx, question, topK, q.Filters)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result := Synthesize(retrieved)
	span.SetData("citations", len(result.Citations))
	telemetry.RecordQARequest()
	return &result, nil
}
