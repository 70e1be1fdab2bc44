// Package config provides configuration loading and structs for the matchfeed server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the config file.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvJWTSecret    = "MATCHFEED_JWT_SECRET"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Profile   ProfileConfig   `yaml:"profile"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port" validate:"min=1,max=65535"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	RateLimitRequests int           `yaml:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

// StorageConfig selects the ranking-state backend and holds paths for the database and indices.
type StorageConfig struct {
	Backend          string `yaml:"backend" validate:"oneof=sqlite badger memory"`
	DatabasePath     string `yaml:"database_path"`
	BadgerPath       string `yaml:"badger_path"`
	CatalogIndexPath string `yaml:"catalog_index_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider" validate:"oneof=gemini onnx mock"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	Dimensions int           `yaml:"dimensions" validate:"min=1"`
	ModelPath  string        `yaml:"model_path"`
	MaxTokens  int           `yaml:"max_tokens"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ProfileConfig holds resume extraction settings.
type ProfileConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=gemini none"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RankingConfig bounds ranking passes and page reads.
type RankingConfig struct {
	TopK        int `yaml:"top_k" validate:"min=0"`
	PageSize    int `yaml:"page_size" validate:"min=1"`
	MaxPageSize int `yaml:"max_page_size" validate:"gtefield=PageSize"`
}

// AuthConfig holds identity token settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// CatalogConfig locates the catalog dump.
type CatalogConfig struct {
	ImportPath string `yaml:"import_path"`
	Watch      bool   `yaml:"watch"`
}

// Load reads and parses the config file at path, expands paths, applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BadgerPath = expandPath(cfg.Storage.BadgerPath, configDir)
	cfg.Storage.CatalogIndexPath = expandPath(cfg.Storage.CatalogIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Catalog.ImportPath != "" {
		cfg.Catalog.ImportPath = expandPath(cfg.Catalog.ImportPath, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides secrets from the environment when the variables are set.
func ApplyEnv(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" {
		cfg.Embedding.APIKey = key
		cfg.Profile.APIKey = key
	}
	if secret := os.Getenv(EnvJWTSecret); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
