package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/pagination"
)

const (
	DefaultDocumentPageSize = 20
	MaxDocumentPageSize     = 100
)

// DocumentListFilter selects a page of documents, newest first.
type DocumentListFilter struct {
	Ticker string
	Source string
	Limit  int
	// After is the keyset position of the last row of the previous page.
	After *pagination.Cursor
}

// DocumentReaderInterface reads persisted documents.
type DocumentReaderInterface interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	List(ctx context.Context, filter DocumentListFilter) ([]*domain.Document, error)
	ExistsByOrigin(ctx context.Context, origin string) (bool, error)
}

// ListDocumentsInput is the external list request.
type ListDocumentsInput struct {
	Ticker string
	Source string
	Limit  int
	Cursor string
}

// DocumentService exposes the read side of the document store.
type DocumentService struct {
	repo DocumentReaderInterface
}

func NewDocumentService(repo DocumentReaderInterface) *DocumentService {
	return &DocumentService{repo: repo}
}

func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one page of documents and the cursor of the next page.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*pagination.PageResult[*domain.Document], error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultDocumentPageSize
	}
	if limit > MaxDocumentPageSize {
		limit = MaxDocumentPageSize
	}

	after, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	// One extra row tells us whether another page exists.
	docs, err := s.repo.List(ctx, DocumentListFilter{
		Ticker: input.Ticker,
		Source: input.Source,
		Limit:  limit + 1,
		After:  after,
	})
	if err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	page := &pagination.PageResult[*domain.Document]{
		Items:   docs,
		HasMore: hasMore,
	}
	if hasMore {
		page.Cursor = pagination.CreateNextCursor(docs, limit,
			func(d *domain.Document) int64 { return d.ID },
			func(d *domain.Document) time.Time { return d.CreatedAt },
		)
	}
	return page, nil
}
