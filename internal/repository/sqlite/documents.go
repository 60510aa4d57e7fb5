package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/service"
)

// DocumentStore persists documents.
type DocumentStore struct {
	q querier
}

var (
	_ service.DocumentRepositoryInterface = (*DocumentStore)(nil)
	_ service.DocumentReaderInterface     = (*DocumentStore)(nil)
)

const documentColumns = `id, source, ticker, title, content, published_at, origin, created_at`

func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	createdAt := time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO documents (source, ticker, title, content, published_at, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.Source, nullStringPtr(doc.Ticker), doc.Title, doc.Content,
		formatTimePtr(doc.PublishedAt), nullString(doc.Origin), formatTime(createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDocumentAlreadyExists
		}
		return fmt.Errorf("saving document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	doc.CreatedAt = createdAt
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns documents newest first, starting after filter.After.
func (s *DocumentStore) List(ctx context.Context, filter service.DocumentListFilter) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	var args []any

	if filter.Ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, filter.Ticker)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.After != nil {
		ts := formatTime(filter.After.Timestamp)
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, ts, ts, filter.After.LastID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, filter.Limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) ExistsByOrigin(ctx context.Context, origin string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE origin = ?)`, origin,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking origin: %w", err)
	}
	return exists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var d domain.Document
	var ticker, publishedAt, origin sql.NullString
	var createdAt string
	if err := row.Scan(&d.ID, &d.Source, &ticker, &d.Title, &d.Content, &publishedAt, &origin, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	var err error
	if d.PublishedAt, err = parseNullTime(publishedAt); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	d.Ticker = stringPtr(ticker)
	d.Origin = origin.String
	return &d, nil
}
