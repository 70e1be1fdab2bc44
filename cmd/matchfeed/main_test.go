package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/models"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"golang backend", "-limit", "5"},
			expected: []string{"-limit", "5", "golang backend"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-fuzzy", "golang backend"},
			expected: []string{"-fuzzy", "golang backend"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"golang backend"},
			expected: []string{"golang backend"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "candidate id then flags",
			args:     []string{"candidate-42", "-ttl", "1h"},
			expected: []string{"-ttl", "1h", "candidate-42"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"golang"}, "golang"},
		{"multiple words", []string{"senior", "golang"}, "senior golang"},
		{"single quoted phrase", []string{"data engineer"}, "data engineer"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Backend:      "memory",
			DatabasePath: filepath.Join(dir, "matchfeed.db"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 3},
		Profile:   config.ProfileConfig{Provider: "none"},
	}
	config.ApplyDefaults(cfg)
	cfg.Storage.CatalogIndexPath = ""
	return cfg
}

func TestInitializeComponents_ImportAndRank(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	dump := filepath.Join(t.TempDir(), "jobs.json")
	content := `[
  {"job_id": "a", "title": "Go Developer", "embedding": [1, 0, 0]},
  {"job_id": "b", "title": "Barista", "embedding": [0, 1, 0]},
  {"job_id": "c", "title": "Writer"}
]`
	if err := os.WriteFile(dump, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	stats, err := c.Importer.SyncFile(ctx, dump)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Imported != 3 || stats.Unembedded != 1 {
		t.Errorf("stats = %+v", stats)
	}

	p := &models.Profile{CandidateID: "cand-1", Preferences: map[string]interface{}{"role": "golang"}}
	res, err := c.Service.SaveProfile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("ranked %d jobs, want 2", res.Total)
	}
	page, err := c.Service.FetchPage(ctx, "cand-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.IDs) != 2 || page.Cursor != 0 {
		t.Errorf("page = %+v", page)
	}

	ensureKeywordIndex(ctx, c, zap.NewNop())
	docs, err := c.Index.DocCount()
	if err != nil || docs != 3 {
		t.Errorf("DocCount = %d, %v; want 3", docs, err)
	}
}

func TestInitializeComponents_WithoutRanking(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(context.Background(), cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Service != nil || c.Embedder != nil {
		t.Error("ranking components should not be built")
	}
	if c.Catalog == nil || c.Cursors == nil || c.Profiles == nil || c.Importer == nil {
		t.Errorf("storage components missing: %+v", c)
	}
}
