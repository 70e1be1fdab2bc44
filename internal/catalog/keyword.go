package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/matchfeed/internal/models"
)

// Field weights used when merging per-field matches.
const (
	titleBoost   = 3.0
	companyBoost = 2.0
	tagsBoost    = 2.0
)

// SearchHit is one keyword search result.
type SearchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SearchOptions tunes keyword search. Nil means exact-term matching.
type SearchOptions struct {
	// Fuzzy matches terms within Fuzziness edits of the query terms.
	Fuzzy bool
	// Fuzziness is the maximum Levenshtein distance (1 or 2). Defaults to 1.
	Fuzziness int
}

// KeywordIndex is a Bleve full-text index over the catalog's text fields.
type KeywordIndex struct {
	index bleve.Index
}

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	// Standard analyzer lower-cases and tokenizes without stemming, so "golang" matches only
	// "golang".
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, field := range []string{"title", "company", "tags", "location", "description"} {
		doc.AddFieldMappingsAt(field, text)
	}
	im.AddDocumentMapping("job", doc)
	im.DefaultType = "job"
	im.DefaultMapping = doc
	return im
}

// NewKeywordIndex opens the index at path, creating it when missing. An empty path builds a
// memory-only index.
func NewKeywordIndex(path string) (*KeywordIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(indexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &KeywordIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &KeywordIndex{index: index}, nil
	}
	index, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &KeywordIndex{index: index}, nil
}

func jobDocument(j *models.Job) map[string]interface{} {
	return map[string]interface{}{
		"title":       j.Title,
		"company":     j.Company,
		"tags":        strings.Join(j.Tags, " "),
		"location":    j.Location,
		"description": j.Description,
	}
}

// Index adds or replaces jobs in one batch.
func (k *KeywordIndex) Index(ctx context.Context, jobs ...*models.Job) error {
	batch := k.index.NewBatch()
	for _, j := range jobs {
		if err := batch.Index(j.ID, jobDocument(j)); err != nil {
			return fmt.Errorf("index job %s: %w", j.ID, err)
		}
	}
	return k.index.Batch(batch)
}

// Delete removes jobs from the index.
func (k *KeywordIndex) Delete(ctx context.Context, ids ...string) error {
	batch := k.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return k.index.Batch(batch)
}

// Search matches query against the job fields. Title, company, and tag matches weigh more
// than description matches. Results are ordered by score, highest first.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []SearchHit{}, nil
	}
	fields := []struct {
		name  string
		boost float64
	}{
		{"title", titleBoost},
		{"company", companyBoost},
		{"tags", tagsBoost},
		{"location", 1},
		{"description", 1},
	}
	queries := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		queries = append(queries, fieldQuery(query, f.name, f.boost, opts))
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit
	results, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]SearchHit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = SearchHit{ID: hit.ID, Score: hit.Score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func fieldQuery(query, field string, boost float64, opts *SearchOptions) blevequery.Query {
	if opts == nil || !opts.Fuzzy {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	fuzziness := opts.Fuzziness
	if fuzziness <= 0 {
		fuzziness = 1
	}
	terms := strings.Fields(strings.ToLower(query))
	qs := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		qs = append(qs, fq)
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// DocCount returns the number of indexed jobs.
func (k *KeywordIndex) DocCount() (uint64, error) {
	return k.index.DocCount()
}

// Close closes the index.
func (k *KeywordIndex) Close() error {
	return k.index.Close()
}
