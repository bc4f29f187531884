package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotInitialized is returned by every store operation when the database
// has not been opened yet or has already been closed. Callers hitting this
// in steady state have a wiring bug, not a runtime condition to retry.
var ErrNotInitialized = errors.New("store: not initialized")

// DB wraps the SQLite connection backing the local write-ahead store.
// All writes land here before any remote attempt is made.
type DB struct {
	sql *sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{sql: db}, nil
}

// Close closes the underlying connection. Subsequent operations fail with
// ErrNotInitialized.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	db.sql = nil
	return err
}

// conn returns the live connection or ErrNotInitialized.
func (db *DB) conn() (*sql.DB, error) {
	if db == nil || db.sql == nil {
		return nil, ErrNotInitialized
	}
	return db.sql, nil
}
