package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmbeddingMetadataRepository struct {
	db dbtx
}

func NewEmbeddingMetadataRepository(pool *pgxpool.Pool) *EmbeddingMetadataRepository {
	return &EmbeddingMetadataRepository{db: pool}
}

func NewEmbeddingMetadataRepositoryWithTx(tx pgx.Tx) *EmbeddingMetadataRepository {
	return &EmbeddingMetadataRepository{db: tx}
}

func (r *EmbeddingMetadataRepository) Create(ctx context.Context, m *domain.EmbeddingMetadata) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("encode embedding payload: %w", err)
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO embedding_metadata (document_id, chunk_id, vector_provider, model_name, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		m.DocumentID, m.ChunkID, m.VectorProvider, m.ModelName, payload,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrChunkAlreadyExists
	}
	return err
}

// GetByChunkID returns the metadata row of one chunk.
func (r *EmbeddingMetadataRepository) GetByChunkID(ctx context.Context, chunkID string) (*domain.EmbeddingMetadata, error) {
	var m domain.EmbeddingMetadata
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, chunk_id, vector_provider, model_name, payload, created_at
		 FROM embedding_metadata WHERE chunk_id = $1`,
		chunkID,
	).Scan(&m.ID, &m.DocumentID, &m.ChunkID, &m.VectorProvider, &m.ModelName, &payload, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &m.Payload); err != nil {
		return nil, fmt.Errorf("decode embedding payload: %w", err)
	}
	return &m, nil
}
