package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// schemaVersion is recorded in PRAGMA user_version once Schema is applied.
const schemaVersion = 1

// OpenOption customises how the history file is opened.
type OpenOption func(*openConfig)

type openConfig struct {
	mkdirAll bool
}

// WithMkdirAll creates parent directories of the database path.
func WithMkdirAll() OpenOption { return func(c *openConfig) { c.mkdirAll = true } }

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

func openDB(path string, opts ...OpenOption) (db *sql.DB, err error) {
	var cfg openConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err = sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// migrate applies Schema to a fresh file and refuses files written by a
// newer schema.
func migrate(db *sql.DB) error {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return fmt.Errorf("store: user_version: %w", err)
	}
	switch {
	case v > schemaVersion:
		return fmt.Errorf("store: history schema v%d is newer than supported v%d", v, schemaVersion)
	case v == schemaVersion:
		return nil
	}
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("store: schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("store: set user_version: %w", err)
	}
	return nil
}

// OpenMemory opens an in-memory store for testing. The store is closed by
// t.Cleanup.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	db, err := openDB(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	s := newStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}
