package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// SQLiteStore keeps the catalog in the shared SQLite database. Embeddings are stored as
// little-endian float32 blobs; catalog order is rowid order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the jobs table on db if needed. The caller owns db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		location TEXT NOT NULL DEFAULT '',
		date_posted TEXT NOT NULL DEFAULT '',
		apply_link TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		embedding BLOB,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const jobColumns = `id, title, company, tags, location, date_posted, apply_link, description, embedding`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j        models.Job
		tagsJSON string
		blob     []byte
	)
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &tagsJSON, &j.Location, &j.DatePosted,
		&j.ApplyLink, &j.Description, &blob); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &j.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", j.ID, err)
	}
	emb, err := vector.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", j.ID, err)
	}
	j.Embedding = emb
	return &j, nil
}

// List returns every job in catalog order.
func (s *SQLiteStore) List(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Get returns one job.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Upsert writes jobs in one transaction. Existing rows keep their catalog position.
func (s *SQLiteStore) Upsert(ctx context.Context, jobs ...*models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			tags = excluded.tags,
			location = excluded.location,
			date_posted = excluded.date_posted,
			apply_link = excluded.apply_link,
			description = excluded.description,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, j := range jobs {
		tags := j.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encode tags for %s: %w", j.ID, err)
		}
		var blob []byte
		if len(j.Embedding) > 0 {
			blob = vector.Encode(j.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, j.ID, j.Title, j.Company, string(tagsJSON), j.Location,
			j.DatePosted, j.ApplyLink, j.Description, blob, now); err != nil {
			return fmt.Errorf("upsert job %s: %w", j.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes jobs by id.
func (s *SQLiteStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id IN (`+placeholders+`)`, args...)
	return err
}

// Count returns the number of jobs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n)
	return n, err
}
