package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/financelm/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Migrate applies every pending up migration for the backend.
func (d *DB) Migrate() error {
	switch d.Backend {
	case BackendPostgres:
		// golang-migrate's postgres driver needs database/sql.
		db, err := sql.Open("pgx", d.url)
		if err != nil {
			return fmt.Errorf("failed to open database for migrations: %w", err)
		}
		defer db.Close()

		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
		return runMigrations(driver, "postgres")
	default:
		driver, err := sqlite.WithInstance(d.SQL, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
		return runMigrations(driver, "sqlite")
	}
}

func runMigrations(driver database.Driver, dir string) error {
	src, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dir, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("migrations: database is up to date (no migrations applied)")
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case errors.Is(upErr, migrate.ErrNoChange):
		log.Printf("migrations: database is up to date (version %d)", version)
	default:
		log.Printf("migrations: applied successfully (version %d, %s)", version, dir)
	}
	return nil
}
