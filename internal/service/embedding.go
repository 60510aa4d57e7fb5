package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/telemetry"
)

const DefaultEmbeddingBatchSize = 64

// ChunkEmbeddingRepository finds chunks without a vector and stores new ones.
type ChunkEmbeddingRepository interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// BackfillResult counts the outcome of one backfill pass.
type BackfillResult struct {
	Embedded int
	Failed   int
}

// EmbeddingService computes embeddings for chunks that lack one.
type EmbeddingService struct {
	client    EmbeddingClient
	repo      ChunkEmbeddingRepository
	batchSize int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo ChunkEmbeddingRepository, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &EmbeddingService{
		client:    client,
		repo:      repo,
		batchSize: batchSize,
	}
}

// Backfill embeds one batch of chunks. A chunk that fails stays without an
// embedding and is picked up again by the next pass.
func (s *EmbeddingService) Backfill(ctx context.Context) (*BackfillResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.Backfill", telemetry.SpanAttributes{
		Operation: "embedding_backfill",
	})
	defer span.End()

	chunks, err := s.repo.ListMissingEmbeddings(ctx, s.batchSize)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list chunks without embeddings: %w", err)
	}

	result := &BackfillResult{}
	for _, c := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, c.Content)
		if err != nil {
			log.Printf("embedding: chunk %s failed: %v", c.ChunkID, err)
			result.Failed++
			continue
		}
		if err := s.repo.UpdateEmbedding(ctx, c.ChunkID, embedding); err != nil {
			span.SetError(err)
			return result, fmt.Errorf("failed to store embedding for %s: %w", c.ChunkID, err)
		}
		result.Embedded++
	}

	return result, nil
}
