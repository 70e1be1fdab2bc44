package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "matchfeed.db")
	if err := os.WriteFile(dbPath, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	indexDir := filepath.Join(dir, "indices", "catalog")
	if err := os.MkdirAll(filepath.Join(indexDir, "store"), 0755); err != nil {
		t.Fatal(err)
	}
	for name, size := range map[string]int{"index_meta.json": 10, "store/root.bolt": 30} {
		if err := os.WriteFile(filepath.Join(indexDir, name), make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database file", []string{dbPath}, 100},
		{"index directory is walked", []string{indexDir}, 40},
		{"database and index", []string{dbPath, indexDir}, 140},
		{"badger dir not created yet", []string{dbPath, filepath.Join(dir, "badger")}, 100},
		{"unset path", []string{"", indexDir}, 40},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes(%v) = %d, want %d", tt.paths, got, tt.want)
			}
		})
	}
}
