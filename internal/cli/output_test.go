package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteImportStats(t *testing.T) {
	stats := &catalog.ImportStats{Imported: 10, Skipped: 2, Removed: 1}
	var buf bytes.Buffer
	if err := WriteImportStats(&buf, "jobs.json", stats, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Imported 10 jobs from jobs.json") || !strings.Contains(out, "skipped:    2") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "unembedded") {
		t.Error("zero counters should be omitted")
	}

	buf.Reset()
	if err := WriteImportStats(&buf, "jobs.json", stats, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["imported"] != 10 || decoded["removed"] != 1 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestWriteRanking(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRanking(&buf, "u1", []string{"b", "c"}, 5, 1, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"u1: 5 ranked jobs, 1 delivered", "   2. b", "   3. c"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchHits(t *testing.T) {
	hits := []SearchHit{{
		Job:   &models.Job{ID: "j1", Title: "Go Engineer", Company: "Acme", Tags: []string{"go", "sql"}, Description: "Build services"},
		Score: 1.25,
	}}
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "go", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 jobs", "j1 | Score: 1.2500", "Go Engineer @ Acme", "Tags: go, sql"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteSearchHits(&buf, "go", hits, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Query   string `json:"query"`
		Results []struct {
			Score float64 `json:"score"`
			Job   struct {
				ID string `json:"id"`
			} `json:"job"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Query != "go" || len(decoded.Results) != 1 || decoded.Results[0].Job.ID != "j1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(2048)
	s := &Status{Jobs: 3, KeywordIndexDocs: 3, DiskUsageBytes: &disk, StorageBackend: "sqlite", EmbeddingModel: "text-embedding-004", EmbeddingDims: 768, TopK: 3000}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "disk_usage_bytes:   2048") || !strings.Contains(buf.String(), "storage_backend:    sqlite") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("a b c d", 2); got != "a b..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("a b", 5); got != "a b" {
		t.Errorf("got %q", got)
	}
}
