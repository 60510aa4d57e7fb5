package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/service"
)

// ChunkStore persists chunks and serves candidate retrieval.
type ChunkStore struct {
	q querier
}

var (
	_ service.ChunkRepositoryInterface = (*ChunkStore)(nil)
	_ service.ChunkStore               = (*ChunkStore)(nil)
)

const chunkColumns = `id, document_id, chunk_id, chunk_index, content, source, ticker, published_at, metadata, created_at`

func (s *ChunkStore) Create(ctx context.Context, c *domain.Chunk) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling chunk metadata: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO document_chunks
			(document_id, chunk_id, chunk_index, content, source, ticker, published_at, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.DocumentID, c.ChunkID, c.ChunkIndex, c.Content, c.Source, nullStringPtr(c.Ticker),
		formatTimePtr(c.PublishedAt), string(metadataJSON), formatTime(createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrChunkAlreadyExists
		}
		return fmt.Errorf("saving chunk: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading chunk id: %w", err)
	}
	c.ID = id
	c.CreatedAt = createdAt
	return nil
}

// FetchChunksByFilter returns at most limit chunks matching every supplied
// filter, ordered by row id.
func (s *ChunkStore) FetchChunksByFilter(ctx context.Context, filters domain.Filters, limit int) ([]domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE 1=1`
	var args []any

	if filters.Ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, filters.Ticker)
	}
	if filters.Source != "" {
		query += ` AND source = ?`
		args = append(args, filters.Source)
	}
	if filters.DateFrom != nil {
		query += ` AND published_at >= ?`
		args = append(args, formatTime(*filters.DateFrom))
	}
	if filters.DateTo != nil {
		query += ` AND published_at <= ?`
		args = append(args, formatTime(*filters.DateTo))
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ListByDocument returns a document's chunks in order.
func (s *ChunkStore) ListByDocument(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = ? ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var ticker, publishedAt sql.NullString
		var metadataJSON, createdAt string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkID, &c.ChunkIndex, &c.Content, &c.Source,
			&ticker, &publishedAt, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}

		var err error
		if c.PublishedAt, err = parseNullTime(publishedAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		c.Ticker = stringPtr(ticker)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

type embeddingMetadataStore struct {
	q querier
}

func (s *embeddingMetadataStore) Create(ctx context.Context, m *domain.EmbeddingMetadata) error {
	payloadJSON, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("marshalling embedding payload: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO embedding_metadata (document_id, chunk_id, vector_provider, model_name, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.DocumentID, m.ChunkID, m.VectorProvider, m.ModelName, string(payloadJSON), formatTime(createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrChunkAlreadyExists
		}
		return fmt.Errorf("saving embedding metadata: %w", err)
	}

	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading embedding metadata id: %w", err)
	}
	m.CreatedAt = createdAt
	return nil
}
