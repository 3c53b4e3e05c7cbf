package library

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"shellac/internal/config"
	"shellac/internal/services"
)

// Store manages library persistence backed by SQLite. A single Store is safe
// for concurrent use; write transactions serialize through SQLite's WAL.
type Store struct {
	db        *sql.DB
	path      string
	chunkSize int
	busy      services.RetryPolicy
}

// Open initializes or connects to the library database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "open", "ensure directories", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "library", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.Store.BusyTimeoutMillis),
		fmt.Sprintf("PRAGMA cache_size = -%d", cfg.Store.CacheKiB),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStorage, "library", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{
		db:        db,
		path:      dbPath,
		chunkSize: cfg.Store.ChunkSize,
		busy:      services.SQLiteBusyPolicy(),
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// ChunkSize returns the configured records-per-transaction batch size.
func (s *Store) ChunkSize() int {
	return s.chunkSize
}
