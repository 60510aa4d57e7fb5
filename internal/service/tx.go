package service

import (
	"context"

	"github.com/cloo-solutions/financelm/internal/domain"
)

// DocumentRepositoryInterface persists documents.
type DocumentRepositoryInterface interface {
	// Create inserts the document and sets its ID and CreatedAt.
	Create(ctx context.Context, doc *domain.Document) error
}

// ChunkRepositoryInterface persists chunks.
type ChunkRepositoryInterface interface {
	Create(ctx context.Context, chunk *domain.Chunk) error
}

// EmbeddingMetadataRepositoryInterface persists per-chunk scorer metadata.
type EmbeddingMetadataRepositoryInterface interface {
	Create(ctx context.Context, meta *domain.EmbeddingMetadata) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Documents() DocumentRepositoryInterface
	Chunks() ChunkRepositoryInterface
	EmbeddingMetadata() EmbeddingMetadataRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
