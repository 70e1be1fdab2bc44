// Package storage opens the SQLite database shared by the catalog, profile, and cursor stores.
package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMillis bounds how long a writer waits for the database lock.
const busyTimeoutMillis = 5000

// OpenSQLite opens or creates a SQLite database at dbPath with WAL enabled.
// Transactions begin with BEGIN IMMEDIATE so a read-then-write transaction holds the
// write lock from its first statement. Parent directories are created if they do not exist.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", fmt.Sprint(busyTimeoutMillis))
	params.Set("_foreign_keys", "on")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	return db, nil
}
