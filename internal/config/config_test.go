package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
  rate_limit_window: 30s
storage:
  backend: badger
  database_path: "test.db"
embedding:
  provider: mock
  dimensions: 8
  timeout: 2s
ranking:
  top_k: 100
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RateLimitWindow != 30*time.Second {
		t.Errorf("rate_limit_window = %v, want 30s", cfg.Server.RateLimitWindow)
	}
	if cfg.Storage.Backend != "badger" || cfg.Storage.DatabasePath == "" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Embedding.Provider != "mock" || cfg.Embedding.Dimensions != 8 || cfg.Embedding.Timeout != 2*time.Second {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Ranking.TopK != 100 || cfg.Ranking.PageSize != 5 {
		t.Errorf("unexpected ranking config: %+v", cfg.Ranking)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/matchfeed.db"
catalog:
  import_path: "./data/jobs.json"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "matchfeed.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "jobs.json"); cfg.Catalog.ImportPath != want {
		t.Errorf("import_path = %s, want %s", cfg.Catalog.ImportPath, want)
	}
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "env-key")
	t.Setenv(EnvJWTSecret, "env-secret")
	path := writeConfig(t, `
embedding:
  api_key: file-key
auth:
  jwt_secret: file-secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "env-key" || cfg.Profile.APIKey != "env-key" {
		t.Errorf("api keys = %q/%q, want env-key", cfg.Embedding.APIKey, cfg.Profile.APIKey)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("jwt_secret = %q, want env-secret", cfg.Auth.JWTSecret)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "storage:\n  backend: postgres\n"},
		{"unknown embedding provider", "embedding:\n  provider: openai\n"},
		{"page size above max", "ranking:\n  page_size: 80\n  max_page_size: 50\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config") {
		t.Errorf("err = %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("default backend: got %s", cfg.Storage.Backend)
	}
	if cfg.Embedding.Provider != "gemini" || cfg.Embedding.Model != "text-embedding-004" || cfg.Embedding.Dimensions != 768 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Ranking.TopK != 3000 || cfg.Ranking.PageSize != 5 || cfg.Ranking.MaxPageSize != 50 {
		t.Errorf("default ranking: %+v", cfg.Ranking)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
