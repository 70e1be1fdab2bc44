// Package cursor persists each candidate's materialized ranking and delivery cursor.
package cursor

import (
	"context"
	"errors"
	"sync"

	"github.com/hyperjump/matchfeed/internal/models"
)

// ErrNotFound is returned by State when a candidate has no stored ranking.
var ErrNotFound = errors.New("ranking state not found")

// Store owns the per-candidate ranking state. Advance is the only operation that moves the
// cursor and is serialized per candidate. A candidate with no stored ranking behaves like an
// empty ranking for PeekNext, Advance, and BatchPeek.
type Store interface {
	// ReplaceRanking overwrites the ranked ids, resets the cursor to 0, and touches the timestamp.
	ReplaceRanking(ctx context.Context, candidateID string, rankedIDs []string) error
	// PeekNext returns the id at the cursor without moving it; ok is false at the end.
	PeekNext(ctx context.Context, candidateID string) (id string, ok bool, err error)
	// Advance returns the id at the cursor and moves the cursor by one; ok is false at the end,
	// in which case the cursor is left unchanged.
	Advance(ctx context.Context, candidateID string) (id string, ok bool, err error)
	// BatchPeek returns up to count ids starting at the cursor without moving it.
	BatchPeek(ctx context.Context, candidateID string, count int) ([]string, error)
	// State returns a snapshot of the candidate's ranking state.
	State(ctx context.Context, candidateID string) (*models.RankingState, error)
	Close() error
}

// KeyedMutex provides one mutex per key. Entries are dropped when no goroutine holds or
// waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns the function that releases it.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size returns the number of live lock entries.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
