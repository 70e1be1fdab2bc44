package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
)

// record is one entry of a catalog dump. Dumps scraped from job boards use job_id,
// company_name or via, and share_link; exports of this service use id, company, and apply_link.
type record struct {
	JobID       string    `json:"job_id"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name"`
	Company     string    `json:"company"`
	Via         string    `json:"via"`
	Tags        []string  `json:"tags"`
	Location    string    `json:"location"`
	DatePosted  string    `json:"date_posted"`
	ShareLink   string    `json:"share_link"`
	ApplyLink   string    `json:"apply_link"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding"`
}

func (r *record) job() *models.Job {
	id := firstNonEmpty(r.JobID, r.ID)
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Job{
		ID:          strings.TrimSpace(id),
		Title:       collapseSpace(r.Title),
		Company:     collapseSpace(firstNonEmpty(r.CompanyName, r.Company, r.Via)),
		Tags:        tags,
		Location:    collapseSpace(r.Location),
		DatePosted:  r.DatePosted,
		ApplyLink:   firstNonEmpty(r.ShareLink, r.ApplyLink),
		Description: strings.TrimSpace(r.Description),
		Embedding:   r.Embedding,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ImportStats summarizes one import.
type ImportStats struct {
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
	Unembedded int `json:"unembedded"`
	Removed    int `json:"removed"`
}

// Importer loads catalog dumps into a Store and, when set, a KeywordIndex.
type Importer struct {
	store      Store
	index      *KeywordIndex
	dimensions int
	logger     *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets a logger for import progress.
func WithLogger(l *zap.Logger) ImporterOption {
	return func(i *Importer) { i.logger = l }
}

// WithDimensions rejects records whose embedding length differs from n.
func WithDimensions(n int) ImporterOption {
	return func(i *Importer) { i.dimensions = n }
}

// NewImporter creates an importer. index may be nil.
func NewImporter(store Store, index *KeywordIndex, opts ...ImporterOption) *Importer {
	imp := &Importer{store: store, index: index, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportFile upserts every valid record of the JSON array at path.
func (imp *Importer) ImportFile(ctx context.Context, path string) (stats *ImportStats, err error) {
	defer func() { imp.recordImport(ctx, err) }()
	jobs, stats, err := imp.readFile(path)
	if err != nil {
		return nil, err
	}
	if err := imp.apply(ctx, jobs); err != nil {
		return nil, err
	}
	stats.Imported = len(jobs)
	imp.logger.Info("catalog imported",
		zap.String("path", path),
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
		zap.Int("unembedded", stats.Unembedded),
	)
	return stats, nil
}

// SyncFile makes the catalog match the dump at path: records are upserted and jobs absent
// from the dump are removed. Rankings that still reference removed jobs deliver stale
// placeholders for them.
func (imp *Importer) SyncFile(ctx context.Context, path string) (stats *ImportStats, err error) {
	defer func() { imp.recordImport(ctx, err) }()
	jobs, stats, err := imp.readFile(path)
	if err != nil {
		return nil, err
	}
	existing, err := imp.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	keep := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		keep[j.ID] = struct{}{}
	}
	var removed []string
	for _, j := range existing {
		if _, ok := keep[j.ID]; !ok {
			removed = append(removed, j.ID)
		}
	}
	if err := imp.apply(ctx, jobs); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		if err := imp.store.Delete(ctx, removed...); err != nil {
			return nil, fmt.Errorf("remove jobs: %w", err)
		}
		if imp.index != nil {
			if err := imp.index.Delete(ctx, removed...); err != nil {
				return nil, fmt.Errorf("remove jobs from keyword index: %w", err)
			}
		}
	}
	stats.Imported = len(jobs)
	stats.Removed = len(removed)
	imp.logger.Info("catalog synced",
		zap.String("path", path),
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
		zap.Int("removed", stats.Removed),
	)
	return stats, nil
}

// Reindex rebuilds the keyword index from the store.
func (imp *Importer) Reindex(ctx context.Context) (int, error) {
	if imp.index == nil {
		return 0, nil
	}
	jobs, err := imp.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	if err := imp.index.Index(ctx, jobs...); err != nil {
		return 0, fmt.Errorf("failed to index keywords: %w", err)
	}
	return len(jobs), nil
}

func (imp *Importer) recordImport(ctx context.Context, err error) {
	if err != nil {
		metrics.RecordCatalogImport(0, err)
		return
	}
	n, countErr := imp.store.Count(ctx)
	if countErr != nil {
		imp.logger.Warn("catalog count failed", zap.Error(countErr))
	}
	metrics.RecordCatalogImport(n, countErr)
}

func (imp *Importer) apply(ctx context.Context, jobs []*models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := imp.store.Upsert(ctx, jobs...); err != nil {
		return fmt.Errorf("failed to store jobs: %w", err)
	}
	if imp.index != nil {
		if err := imp.index.Index(ctx, jobs...); err != nil {
			return fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	return nil
}

func (imp *Importer) readFile(path string) ([]*models.Job, *ImportStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	jobs, stats := imp.convert(records)
	return jobs, stats, nil
}

// convert validates records. Records without an id, duplicates of an earlier id, and records
// whose embedding length disagrees with the catalog dimensionality are skipped.
func (imp *Importer) convert(records []record) ([]*models.Job, *ImportStats) {
	stats := &ImportStats{}
	dims := imp.dimensions
	seen := make(map[string]struct{}, len(records))
	jobs := make([]*models.Job, 0, len(records))
	for i := range records {
		j := records[i].job()
		if j.ID == "" {
			stats.Skipped++
			imp.logger.Debug("catalog record without id skipped", zap.Int("index", i))
			continue
		}
		if _, dup := seen[j.ID]; dup {
			stats.Skipped++
			imp.logger.Debug("duplicate catalog record skipped", zap.String("id", j.ID))
			continue
		}
		if j.HasEmbedding() {
			if dims == 0 {
				dims = len(j.Embedding)
			}
			if len(j.Embedding) != dims {
				stats.Skipped++
				imp.logger.Warn("catalog record with wrong embedding dimensions skipped",
					zap.String("id", j.ID), zap.Int("got", len(j.Embedding)), zap.Int("want", dims))
				continue
			}
		} else {
			stats.Unembedded++
		}
		seen[j.ID] = struct{}{}
		jobs = append(jobs, j)
	}
	return jobs, stats
}
