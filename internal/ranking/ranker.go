// Package ranking orders catalog jobs by semantic similarity to a candidate's query vector.
package ranking

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/vector"
)

var (
	// ErrEmptyCatalog is returned when no catalog job carries an embedding.
	ErrEmptyCatalog = errors.New("catalog has no jobs with embeddings")
	// ErrInvalidLimit is returned for a negative limit.
	ErrInvalidLimit = errors.New("ranking limit must not be negative")
)

// Rank scores every embedded job in catalog against query and returns the top limit entries,
// highest score first. Jobs with equal scores keep their catalog order. Jobs without an
// embedding are skipped. A dimension mismatch on any job aborts the whole pass.
func Rank(query []float32, catalog []*models.Job, limit int) ([]models.RankedEntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	entries := make([]models.RankedEntry, 0, len(catalog))
	for _, job := range catalog {
		if !job.HasEmbedding() {
			continue
		}
		score, err := vector.CosineSimilarity(query, job.Embedding)
		if err != nil {
			return nil, fmt.Errorf("score job %s: %w", job.ID, err)
		}
		entries = append(entries, models.RankedEntry{ItemID: job.ID, Score: score})
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// IDs returns the item ids of entries in ranking order.
func IDs(entries []models.RankedEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ItemID
	}
	return ids
}
