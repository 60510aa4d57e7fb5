package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists document chunks and their optional embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

const chunkColumns = `id, document_id, chunk_id, chunk_index, content, source, ticker, published_at, metadata, embedding, created_at`

func (r *ChunkRepository) Create(ctx context.Context, c *domain.Chunk) error {
	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode chunk metadata: %w", err)
	}

	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO document_chunks
			(document_id, chunk_id, chunk_index, content, source, ticker, published_at, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		c.DocumentID, c.ChunkID, c.ChunkIndex, c.Content, c.Source, c.Ticker, c.PublishedAt, metadata, embedding,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrChunkAlreadyExists
		}
		return err
	}
	return nil
}

// FetchChunksByFilter returns at most limit chunks matching every supplied
// filter, ordered by row id.
func (r *ChunkRepository) FetchChunksByFilter(ctx context.Context, filters domain.Filters, limit int) ([]domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE 1=1`
	var args []any

	if filters.Ticker != "" {
		args = append(args, filters.Ticker)
		query += fmt.Sprintf(" AND ticker = $%d", len(args))
	}
	if filters.Source != "" {
		args = append(args, filters.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filters.DateFrom != nil {
		args = append(args, *filters.DateFrom)
		query += fmt.Sprintf(" AND published_at >= $%d", len(args))
	}
	if filters.DateTo != nil {
		args = append(args, *filters.DateTo)
		query += fmt.Sprintf(" AND published_at <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListMissingEmbeddings returns the oldest chunks without an embedding.
func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks
		 WHERE embedding IS NULL
		 ORDER BY id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1 WHERE chunk_id = $2`,
		pgvector.NewVector(embedding), chunkID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// ListByDocument returns a document's chunks in order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func scanChunkRows(rows pgx.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var metadata []byte
		var embedding *pgvector.Vector
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkID, &c.ChunkIndex, &c.Content, &c.Source, &c.Ticker,
			&c.PublishedAt, &metadata, &embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
