package catalog

import (
	"context"
	"sync"

	"github.com/hyperjump/matchfeed/internal/models"
)

// MemoryStore is an in-process catalog.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*models.Job
	order []string
}

// NewMemoryStore returns a catalog holding jobs in the given order.
func NewMemoryStore(jobs ...*models.Job) *MemoryStore {
	m := &MemoryStore{jobs: make(map[string]*models.Job)}
	_ = m.Upsert(context.Background(), jobs...)
	return m
}

// List returns all jobs in insertion order.
func (m *MemoryStore) List(ctx context.Context) ([]*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id])
	}
	return out, nil
}

// Get returns the job with id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// Upsert inserts new jobs at the end and replaces existing ones in place.
func (m *MemoryStore) Upsert(ctx context.Context, jobs ...*models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range jobs {
		if _, ok := m.jobs[j.ID]; !ok {
			m.order = append(m.order, j.ID)
		}
		cp := *j
		m.jobs[j.ID] = &cp
	}
	return nil
}

// Delete removes jobs; unknown ids are ignored.
func (m *MemoryStore) Delete(ctx context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := m.jobs[id]; ok {
			delete(m.jobs, id)
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return nil
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return nil
}

// Count returns the number of jobs.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}
