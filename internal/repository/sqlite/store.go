// Package sqlite implements the document and chunk store on SQLite
// (modernc.org/sqlite, no cgo). It mirrors the PostgreSQL repositories
// except for embeddings, which SQLite does not store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cloo-solutions/financelm/internal/service"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store gives access to the SQLite-backed repositories. The schema must
// already be migrated.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Documents returns the document repository.
func (s *Store) Documents() *DocumentStore {
	return &DocumentStore{q: s.db}
}

// Chunks returns the chunk repository.
func (s *Store) Chunks() *ChunkStore {
	return &ChunkStore{q: s.db}
}

// JobAudits returns the job audit repository.
func (s *Store) JobAudits() *JobAuditStore {
	return &JobAuditStore{q: s.db}
}

var _ service.TxRunner = (*Store)(nil)

// WithTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&txRepos{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	tx *sql.Tx
}

func (r *txRepos) Documents() service.DocumentRepositoryInterface {
	return &DocumentStore{q: r.tx}
}

func (r *txRepos) Chunks() service.ChunkRepositoryInterface {
	return &ChunkStore{q: r.tx}
}

func (r *txRepos) EmbeddingMetadata() service.EmbeddingMetadataRepositoryInterface {
	return &embeddingMetadataStore{q: r.tx}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func isUniqueViolation(err error) bool {
	var e *sqlitedrv.Error
	if !errors.As(err, &e) {
		return false
	}
	code := e.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(e.Error(), "UNIQUE"))
}
