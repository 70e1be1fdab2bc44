package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/hyperjump/matchfeed/internal/models"
)

const rankingKeyPrefix = "ranking:"

// BadgerStore keeps each ranking state as one JSON value keyed by candidate id.
type BadgerStore struct {
	db   *badger.DB
	keys KeyedMutex
	owns bool
}

// NewBadgerStore wraps an open BadgerDB. The caller keeps ownership of db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens a BadgerDB at path. The returned store closes it on Close.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for rankings: %w", err)
	}
	return &BadgerStore{db: db, owns: true}, nil
}

func rankingKey(candidateID string) []byte {
	return []byte(rankingKeyPrefix + candidateID)
}

func getState(txn *badger.Txn, candidateID string) (*models.RankingState, error) {
	item, err := txn.Get(rankingKey(candidateID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ranking: %w", err)
	}
	var st models.RankingState
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	}); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	return &st, nil
}

func putState(txn *badger.Txn, st *models.RankingState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal ranking: %w", err)
	}
	return txn.Set(rankingKey(st.CandidateID), data)
}

func (s *BadgerStore) load(candidateID string) (*models.RankingState, error) {
	var st *models.RankingState
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = getState(txn, candidateID)
		return err
	})
	return st, err
}

// ReplaceRanking writes a new state with the cursor at 0.
func (s *BadgerStore) ReplaceRanking(ctx context.Context, candidateID string, rankedIDs []string) error {
	unlock := s.keys.Lock(candidateID)
	defer unlock()

	ids := make([]string, len(rankedIDs))
	copy(ids, rankedIDs)
	return s.db.Update(func(txn *badger.Txn) error {
		return putState(txn, &models.RankingState{
			CandidateID: candidateID,
			RankedIDs:   ids,
			Cursor:      0,
			UpdatedAt:   time.Now().UTC(),
		})
	})
}

// PeekNext returns the id at the cursor.
func (s *BadgerStore) PeekNext(ctx context.Context, candidateID string) (string, bool, error) {
	st, err := s.load(candidateID)
	if err != nil {
		return "", false, err
	}
	if st == nil || st.Exhausted() {
		return "", false, nil
	}
	return st.RankedIDs[st.Cursor], true, nil
}

// Advance reads and bumps the cursor inside one read-write transaction.
func (s *BadgerStore) Advance(ctx context.Context, candidateID string) (string, bool, error) {
	unlock := s.keys.Lock(candidateID)
	defer unlock()

	var (
		id string
		ok bool
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		st, err := getState(txn, candidateID)
		if err != nil {
			return err
		}
		if st == nil || st.Exhausted() {
			return nil
		}
		id, ok = st.RankedIDs[st.Cursor], true
		st.Cursor++
		return putState(txn, st)
	})
	if err != nil {
		return "", false, err
	}
	return id, ok, nil
}

// BatchPeek returns up to count ids from the cursor.
func (s *BadgerStore) BatchPeek(ctx context.Context, candidateID string, count int) ([]string, error) {
	st, err := s.load(candidateID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return []string{}, nil
	}
	return st.Window(count), nil
}

// State returns the stored state.
func (s *BadgerStore) State(ctx context.Context, candidateID string) (*models.RankingState, error) {
	st, err := s.load(candidateID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrNotFound
	}
	if st.RankedIDs == nil {
		st.RankedIDs = []string{}
	}
	return st, nil
}

// Close closes the database when the store opened it.
func (s *BadgerStore) Close() error {
	if s.owns {
		return s.db.Close()
	}
	return nil
}
