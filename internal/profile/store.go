package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/hyperjump/matchfeed/internal/models"
)

// ErrNotFound is returned when a candidate has no saved profile.
var ErrNotFound = errors.New("profile not found")

// Store persists candidate profiles.
type Store interface {
	Save(ctx context.Context, p *models.Profile) error
	Get(ctx context.Context, candidateID string) (*models.Profile, error)
}

// SQLiteStore keeps profiles in the shared SQLite database with the attribute maps as JSON.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates the profiles table on db if needed. The caller owns db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		candidate_id TEXT PRIMARY KEY,
		info TEXT NOT NULL DEFAULT '{}',
		preferences TEXT NOT NULL DEFAULT '{}',
		dynamic_keys TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize profile schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Save inserts or replaces the profile and stamps UpdatedAt.
func (s *SQLiteStore) Save(ctx context.Context, p *models.Profile) error {
	if p == nil || p.CandidateID == "" {
		return errors.New("profile must have a candidate id")
	}
	info, err := marshalMap(p.Info)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}
	prefs, err := marshalMap(p.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	keys, err := marshalMap(p.DynamicKeys)
	if err != nil {
		return fmt.Errorf("encode dynamic keys: %w", err)
	}
	p.UpdatedAt = s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (candidate_id, info, preferences, dynamic_keys, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id) DO UPDATE SET
			info = excluded.info,
			preferences = excluded.preferences,
			dynamic_keys = excluded.dynamic_keys,
			updated_at = excluded.updated_at`,
		p.CandidateID, info, prefs, keys, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.CandidateID, err)
	}
	return nil
}

// Get returns the profile of candidateID or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, candidateID string) (*models.Profile, error) {
	var (
		p                  models.Profile
		info, prefs, keys string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT candidate_id, info, preferences, dynamic_keys, updated_at FROM profiles WHERE candidate_id = ?`,
		candidateID).Scan(&p.CandidateID, &info, &prefs, &keys, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", candidateID, err)
	}
	if err := json.Unmarshal([]byte(info), &p.Info); err != nil {
		return nil, fmt.Errorf("decode info: %w", err)
	}
	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(keys), &p.DynamicKeys); err != nil {
		return nil, fmt.Errorf("decode dynamic keys: %w", err)
	}
	return &p, nil
}

func marshalMap[V any](m map[string]V) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// MemoryStore is an in-process profile store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]models.Profile)}
}

// Save stores a shallow copy of p and stamps UpdatedAt.
func (m *MemoryStore) Save(ctx context.Context, p *models.Profile) error {
	if p == nil || p.CandidateID == "" {
		return errors.New("profile must have a candidate id")
	}
	p.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	m.profiles[p.CandidateID] = *p
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored profile or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, candidateID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// FromExtracted builds a profile for candidateID from an extraction result.
func FromExtracted(candidateID string, e *ExtractedProfile) *models.Profile {
	return &models.Profile{
		CandidateID: candidateID,
		Info:        e.Info,
		Preferences: e.Preferences,
		DynamicKeys: e.NewKeys,
	}
}
