package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, source, ticker, title, content, published_at, origin, created_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents (source, ticker, title, content, published_at, origin)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		doc.Source, doc.Ticker, doc.Title, doc.Content, doc.PublishedAt, nullableString(doc.Origin),
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDocumentAlreadyExists
		}
		return err
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns documents newest first, starting after filter.After.
func (r *DocumentRepository) List(ctx context.Context, filter service.DocumentListFilter) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	var args []any

	if filter.Ticker != "" {
		args = append(args, filter.Ticker)
		query += fmt.Sprintf(" AND ticker = $%d", len(args))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filter.After != nil {
		args = append(args, filter.After.Timestamp, filter.After.LastID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
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

func (r *DocumentRepository) ExistsByOrigin(ctx context.Context, origin string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE origin = $1)`, origin,
	).Scan(&exists)
	return exists, err
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var origin *string
	if err := row.Scan(&d.ID, &d.Source, &d.Ticker, &d.Title, &d.Content, &d.PublishedAt, &origin, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Origin = domain.StringValue(origin)
	return &d, nil
}
