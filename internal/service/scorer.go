package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cloo-solutions/financelm/internal/domain"
)

// Scorer kinds accepted in configuration.
const (
	ScorerLexical   = "lexical"
	ScorerEmbedding = "embedding"
	ScorerHybrid    = "hybrid"

	DefaultHybridWeight = 0.5
)

// Scorer assigns a relevance in [0, 1] to every candidate chunk for a query.
// The returned slice is parallel to chunks.
type Scorer interface {
	Kind() string
	// Provider and Model label the embedding metadata written at ingestion.
	Provider() string
	Model() string
	Score(ctx context.Context, query string, chunks []domain.Chunk) ([]float64, error)
}

// EmbeddingClient generates an embedding vector for a text.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ScorerConfig selects and parameterizes a Scorer.
type ScorerConfig struct {
	Kind           string
	HybridWeight   float64
	EmbeddingModel string
}

// NewScorer builds the scorer named by cfg.Kind. Embedding based scorers
// need a client.
func NewScorer(cfg ScorerConfig, client EmbeddingClient) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", ScorerLexical:
		return LexicalScorer{}, nil
	case ScorerEmbedding:
		if client == nil {
			return nil, domain.ErrEmbeddingsUnsupported
		}
		return &EmbeddingScorer{client: client, model: cfg.EmbeddingModel}, nil
	case ScorerHybrid:
		if client == nil {
			return nil, domain.ErrEmbeddingsUnsupported
		}
		return NewHybridScorer(&EmbeddingScorer{client: client, model: cfg.EmbeddingModel}, cfg.HybridWeight), nil
	default:
		return nil, domain.Wrap(domain.ErrUnknownScorer, cfg.Kind)
	}
}

// LexicalScorer scores by query term overlap.
type LexicalScorer struct{}

func (LexicalScorer) Kind() string     { return ScorerLexical }
func (LexicalScorer) Provider() string { return domain.VectorProviderLexical }
func (LexicalScorer) Model() string    { return domain.ModelNameLexical }

func (LexicalScorer) Score(_ context.Context, query string, chunks []domain.Chunk) ([]float64, error) {
	terms := Tokenize(query)
	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = LexicalScore(terms, c.Content)
	}
	return scores, nil
}

// EmbeddingScorer scores by cosine similarity between the query embedding
// and each chunk's stored embedding. Chunks without one score zero.
type EmbeddingScorer struct {
	client EmbeddingClient
	model  string
}

func NewEmbeddingScorer(client EmbeddingClient, model string) *EmbeddingScorer {
	return &EmbeddingScorer{client: client, model: model}
}

func (s *EmbeddingScorer) Kind() string     { return ScorerEmbedding }
func (s *EmbeddingScorer) Provider() string { return domain.VectorProviderOpenAI }
func (s *EmbeddingScorer) Model() string    { return s.model }

func (s *EmbeddingScorer) Score(ctx context.Context, query string, chunks []domain.Chunk) ([]float64, error) {
	scores := make([]float64, len(chunks))
	if len(chunks) == 0 || strings.TrimSpace(query) == "" {
		return scores, nil
	}

	queryVec, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	for i, c := range chunks {
		scores[i] = clamp01(cosineSimilarity(queryVec, c.Embedding))
	}
	return scores, nil
}

// HybridScorer blends lexical and embedding scores:
// weight*lexical + (1-weight)*embedding.
type HybridScorer struct {
	lexical   LexicalScorer
	embedding *EmbeddingScorer
	weight    float64
}

func NewHybridScorer(embedding *EmbeddingScorer, weight float64) *HybridScorer {
	if weight < 0 || weight > 1 {
		weight = DefaultHybridWeight
	}
	return &HybridScorer{embedding: embedding, weight: weight}
}

func (s *HybridScorer) Kind() string     { return ScorerHybrid }
func (s *HybridScorer) Provider() string { return s.embedding.Provider() }
func (s *HybridScorer) Model() string    { return s.embedding.Model() }

func (s *HybridScorer) Score(ctx context.Context, query string, chunks []domain.Chunk) ([]float64, error) {
	lexical, err := s.lexical.Score(ctx, query, chunks)
	if err != nil {
		return nil, err
	}
	semantic, err := s.embedding.Score(ctx, query, chunks)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(chunks))
	for i := range chunks {
		scores[i] = clamp01(s.weight*lexical[i] + (1-s.weight)*semantic[i])
	}
	return scores, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
