package cursor

import (
	"database/sql"
	"fmt"
)

// Backend names a Store implementation.
type Backend string

const (
	// BackendSQLite stores rankings in the shared SQLite database (default).
	BackendSQLite Backend = "sqlite"
	// BackendBadger stores rankings in a BadgerDB directory.
	BackendBadger Backend = "badger"
	// BackendMemory keeps rankings in process memory. Nothing survives a restart.
	BackendMemory Backend = "memory"
)

// NewStore creates the cursor store for backend.
// db is required for sqlite; badgerPath is required for badger.
func NewStore(backend string, db *sql.DB, badgerPath string) (Store, error) {
	switch Backend(backend) {
	case BackendSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("sqlite cursor store requires a database")
		}
		return NewSQLiteStore(db)
	case BackendBadger:
		if badgerPath == "" {
			return nil, fmt.Errorf("badger cursor store requires a path")
		}
		return OpenBadgerStore(badgerPath)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, badger, memory)", backend)
	}
}
