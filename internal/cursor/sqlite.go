package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

// SQLiteStore persists ranking states in SQLite. The ranked ids live one row per position so
// Advance reads a single row; every mutation runs in a BEGIN IMMEDIATE transaction.
type SQLiteStore struct {
	db   *sql.DB
	keys KeyedMutex
}

// NewSQLiteStore initializes the cursor schema on db. The caller owns db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := initSchema(db); err != nil {
		return nil, fmt.Errorf("failed to initialize cursor schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ranking_states (
		candidate_id TEXT PRIMARY KEY,
		total INTEGER NOT NULL,
		cursor INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ranking_entries (
		candidate_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		PRIMARY KEY (candidate_id, position)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceRanking swaps the whole ranking and resets the cursor inside one transaction.
func (s *SQLiteStore) ReplaceRanking(ctx context.Context, candidateID string, rankedIDs []string) error {
	unlock := s.keys.Lock(candidateID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ranking_entries WHERE candidate_id = ?`, candidateID); err != nil {
		return fmt.Errorf("clear ranking: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ranking_entries (candidate_id, position, item_id) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for pos, id := range rankedIDs {
		if _, err := stmt.ExecContext(ctx, candidateID, pos, id); err != nil {
			return fmt.Errorf("insert ranking entry %d: %w", pos, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ranking_states (candidate_id, total, cursor, updated_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT(candidate_id) DO UPDATE SET total = excluded.total, cursor = 0, updated_at = excluded.updated_at`,
		candidateID, len(rankedIDs), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert ranking state: %w", err)
	}
	return tx.Commit()
}

// PeekNext returns the id at the cursor.
func (s *SQLiteStore) PeekNext(ctx context.Context, candidateID string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT e.item_id FROM ranking_states r
		 JOIN ranking_entries e ON e.candidate_id = r.candidate_id AND e.position = r.cursor
		 WHERE r.candidate_id = ?`, candidateID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Advance reads the id at the cursor and increments the cursor in one transaction.
func (s *SQLiteStore) Advance(ctx context.Context, candidateID string) (string, bool, error) {
	unlock := s.keys.Lock(candidateID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	var total, cur int
	err = tx.QueryRowContext(ctx,
		`SELECT total, cursor FROM ranking_states WHERE candidate_id = ?`, candidateID,
	).Scan(&total, &cur)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if cur >= total {
		return "", false, nil
	}

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT item_id FROM ranking_entries WHERE candidate_id = ? AND position = ?`, candidateID, cur,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("read ranking entry %d: %w", cur, err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE ranking_states SET cursor = cursor + 1 WHERE candidate_id = ? AND cursor = ?`,
		candidateID, cur,
	)
	if err != nil {
		return "", false, err
	}
	if n, _ := result.RowsAffected(); n != 1 {
		return "", false, fmt.Errorf("cursor for %s moved concurrently", candidateID)
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// BatchPeek returns up to count ids from the cursor in ranking order.
func (s *SQLiteStore) BatchPeek(ctx context.Context, candidateID string, count int) ([]string, error) {
	ids := []string{}
	if count <= 0 {
		return ids, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.item_id FROM ranking_states r
		 JOIN ranking_entries e ON e.candidate_id = r.candidate_id AND e.position >= r.cursor
		 WHERE r.candidate_id = ? ORDER BY e.position LIMIT ?`,
		candidateID, count,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// State loads the full ranking state.
func (s *SQLiteStore) State(ctx context.Context, candidateID string) (*models.RankingState, error) {
	// One transaction so the cursor and the id list come from the same ranking.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	st := &models.RankingState{CandidateID: candidateID}
	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT total, cursor, updated_at FROM ranking_states WHERE candidate_id = ?`, candidateID,
	).Scan(&total, &st.Cursor, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT item_id FROM ranking_entries WHERE candidate_id = ? ORDER BY position`, candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	st.RankedIDs = make([]string, 0, total)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		st.RankedIDs = append(st.RankedIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return st, tx.Commit()
}

// Close is a no-op; the shared database is closed by its owner.
func (s *SQLiteStore) Close() error {
	return nil
}
