// Package catalog stores job postings with their embeddings, imports catalog dumps, and
// serves keyword search over the postings.
package catalog

import (
	"context"
	"errors"

	"github.com/hyperjump/matchfeed/internal/models"
)

// ErrJobNotFound is returned by Get when the id does not resolve.
var ErrJobNotFound = errors.New("job not found")

// Store is the catalog of job postings. List returns jobs in catalog order, which is the
// order they were first inserted; ranking ties are broken by it.
type Store interface {
	List(ctx context.Context) ([]*models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Upsert(ctx context.Context, jobs ...*models.Job) error
	Delete(ctx context.Context, ids ...string) error
	Count(ctx context.Context) (int, error)
}
