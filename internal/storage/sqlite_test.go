package storage

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "matchfeed.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	n, err := DiskUsageBytes(path)
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 {
		t.Errorf("expected database file on disk, got %d bytes", n)
	}
}
