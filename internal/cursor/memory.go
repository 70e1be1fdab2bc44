package cursor

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

// MemoryStore keeps ranking states in memory. States are replaced, never mutated in place,
// so readers always see a consistent ids/cursor pair.
type MemoryStore struct {
	states map[string]*models.RankingState
	mu     sync.RWMutex
	keys   KeyedMutex
	now    func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*models.RankingState),
		now:    time.Now,
	}
}

func (m *MemoryStore) load(candidateID string) *models.RankingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[candidateID]
}

func (m *MemoryStore) store(st *models.RankingState) {
	m.mu.Lock()
	m.states[st.CandidateID] = st
	m.mu.Unlock()
}

// ReplaceRanking stores a copy of rankedIDs with the cursor at 0.
func (m *MemoryStore) ReplaceRanking(ctx context.Context, candidateID string, rankedIDs []string) error {
	unlock := m.keys.Lock(candidateID)
	defer unlock()
	ids := make([]string, len(rankedIDs))
	copy(ids, rankedIDs)
	m.store(&models.RankingState{
		CandidateID: candidateID,
		RankedIDs:   ids,
		Cursor:      0,
		UpdatedAt:   m.now(),
	})
	return nil
}

// PeekNext returns the id at the cursor.
func (m *MemoryStore) PeekNext(ctx context.Context, candidateID string) (string, bool, error) {
	st := m.load(candidateID)
	if st == nil || st.Exhausted() {
		return "", false, nil
	}
	return st.RankedIDs[st.Cursor], true, nil
}

// Advance returns the id at the cursor and moves the cursor forward by one.
func (m *MemoryStore) Advance(ctx context.Context, candidateID string) (string, bool, error) {
	unlock := m.keys.Lock(candidateID)
	defer unlock()
	st := m.load(candidateID)
	if st == nil || st.Exhausted() {
		return "", false, nil
	}
	id := st.RankedIDs[st.Cursor]
	next := *st
	next.Cursor++
	m.store(&next)
	return id, true, nil
}

// BatchPeek returns up to count ids from the cursor.
func (m *MemoryStore) BatchPeek(ctx context.Context, candidateID string, count int) ([]string, error) {
	st := m.load(candidateID)
	if st == nil {
		return []string{}, nil
	}
	return st.Window(count), nil
}

// State returns a copy of the candidate's state.
func (m *MemoryStore) State(ctx context.Context, candidateID string) (*models.RankingState, error) {
	st := m.load(candidateID)
	if st == nil {
		return nil, ErrNotFound
	}
	out := *st
	out.RankedIDs = append([]string(nil), st.RankedIDs...)
	return &out, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
