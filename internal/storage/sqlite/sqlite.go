// Package sqlite implements the cycle store on SQLite. The database is a
// single file (or ":memory:" for tests) opened in WAL mode.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sitepulse/sitepulse/internal/storage"
)

// SQLiteStore implements storage.Store.
type SQLiteStore struct {
	db *sql.DB
}

var _ storage.Store = (*SQLiteStore)(nil)

// New opens (creating if necessary) the cycle database at path.
func New(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode keeps the daemon's writes from blocking CLI reads
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A pooled ":memory:" would hand each connection its own empty database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
