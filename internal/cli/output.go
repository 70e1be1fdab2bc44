// Package cli formats command output for the matchfeed CLI.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// Status is the snapshot printed by "matchfeed status".
type Status struct {
	Jobs             int    `json:"jobs"`
	KeywordIndexDocs uint64 `json:"keyword_index_docs"`
	DiskUsageBytes   *int64 `json:"disk_usage_bytes,omitempty"`
	StorageBackend   string `json:"storage_backend"`
	EmbeddingModel   string `json:"embedding_model"`
	EmbeddingDims    int    `json:"embedding_dimensions"`
	TopK             int    `json:"top_k"`
	DatabasePath     string `json:"database_path,omitempty"`
	CatalogIndexPath string `json:"catalog_index_path,omitempty"`
}

// SearchHit is one keyword search result with its job.
type SearchHit struct {
	Job   *models.Job
	Score float64
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteImportStats writes the result of a catalog import.
func WriteImportStats(w io.Writer, path string, stats *catalog.ImportStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Imported %d jobs from %s\n", stats.Imported, path)
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "  skipped:    %d   # missing id, duplicate, or wrong embedding size\n", stats.Skipped)
	}
	if stats.Unembedded > 0 {
		fmt.Fprintf(w, "  unembedded: %d   # stored but never ranked\n", stats.Unembedded)
	}
	if stats.Removed > 0 {
		fmt.Fprintf(w, "  removed:    %d\n", stats.Removed)
	}
	return nil
}

// WriteStatus writes a status snapshot.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "jobs:               %d   # catalog size\n", s.Jobs)
	fmt.Fprintf(w, "keyword_index_docs: %d\n", s.KeywordIndexDocs)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + indices on disk\n", *s.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "storage_backend:    %s\n", s.StorageBackend)
	fmt.Fprintf(w, "embedding_model:    %s\n", s.EmbeddingModel)
	fmt.Fprintf(w, "embedding_dims:     %d\n", s.EmbeddingDims)
	fmt.Fprintf(w, "top_k:              %d\n", s.TopK)
	if s.DatabasePath != "" {
		fmt.Fprintf(w, "database_path:      %s\n", s.DatabasePath)
	}
	if s.CatalogIndexPath != "" {
		fmt.Fprintf(w, "catalog_index_path: %s\n", s.CatalogIndexPath)
	}
	return nil
}

// WriteRanking writes the ids of a ranking page, numbered from cursor+1.
func WriteRanking(w io.Writer, candidateID string, ids []string, total, cursor int, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{
			"candidate_id": candidateID,
			"ranked_jobs":  ids,
			"total_jobs":   total,
			"cursor":       cursor,
		})
	}
	fmt.Fprintf(w, "%s: %d ranked jobs, %d delivered\n", candidateID, total, cursor)
	for i, id := range ids {
		fmt.Fprintf(w, "%4d. %s\n", cursor+i+1, id)
	}
	return nil
}

// WriteSearchHits writes keyword search results.
func WriteSearchHits(w io.Writer, query string, hits []SearchHit, format OutputFormat) error {
	if format == OutputJSON {
		out := make([]map[string]interface{}, 0, len(hits))
		for _, h := range hits {
			out = append(out, map[string]interface{}{"score": h.Score, "job": h.Job.View()})
		}
		return writeJSON(w, map[string]interface{}{"query": query, "results": out})
	}
	fmt.Fprintf(w, "\nFound %d jobs for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s | Score: %.4f\n", i+1, h.Job.ID, h.Score)
		fmt.Fprintf(w, "%s", h.Job.Title)
		if h.Job.Company != "" {
			fmt.Fprintf(w, " @ %s", h.Job.Company)
		}
		if h.Job.Location != "" {
			fmt.Fprintf(w, " (%s)", h.Job.Location)
		}
		fmt.Fprintln(w)
		if len(h.Job.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(h.Job.Tags, ", "))
		}
		if h.Job.Description != "" {
			fmt.Fprintf(w, "\n%s\n", TruncateWords(h.Job.Description, 40))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
