// Package database opens the configured store backend and applies its schema.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Backend names a supported store.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

var ErrUnsupportedURL = errors.New("unsupported database url: expected postgres:// or sqlite://")

// DB is an open backend. Exactly one of Pool and SQL is set.
type DB struct {
	Backend Backend
	Pool    *pgxpool.Pool
	SQL     *sql.DB

	url string
}

// ParseURL picks the backend for a DATABASE_URL and returns the driver DSN.
// "sqlite://./data/x.db" yields the path "./data/x.db".
func ParseURL(url string) (Backend, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return BackendPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: missing sqlite path", ErrUnsupportedURL)
		}
		return BackendSQLite, path, nil
	default:
		return "", "", ErrUnsupportedURL
	}
}

// Open connects to the backend named by url and verifies the connection.
func Open(ctx context.Context, url string) (*DB, error) {
	backend, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendPostgres:
		pool, err := NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &DB{Backend: backend, Pool: pool, url: dsn}, nil
	default:
		db, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &DB{Backend: backend, SQL: db, url: dsn}, nil
	}
}

// NewPool creates a pgx pool and pings it.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// OpenSQLite opens (and creates) a SQLite database file in WAL mode with
// foreign keys enforced on every connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Ping runs SELECT 1 against the backend.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	if d.Pool != nil {
		return d.Pool.QueryRow(ctx, "SELECT 1").Scan(&one)
	}
	return d.SQL.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (d *DB) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.SQL != nil {
		d.SQL.Close()
	}
}
