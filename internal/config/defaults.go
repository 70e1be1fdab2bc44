package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Server.RateLimitRequests == 0 {
		cfg.Server.RateLimitRequests = 100
	}
	if cfg.Server.RateLimitWindow == 0 {
		cfg.Server.RateLimitWindow = time.Minute
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/matchfeed/data/db/matchfeed.db"
	}
	if cfg.Storage.BadgerPath == "" {
		cfg.Storage.BadgerPath = "/usr/local/var/matchfeed/data/badger"
	}
	if cfg.Storage.CatalogIndexPath == "" {
		cfg.Storage.CatalogIndexPath = "/usr/local/var/matchfeed/data/indices/catalog"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/matchfeed/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 15 * time.Second
	}
	if cfg.Profile.Provider == "" {
		cfg.Profile.Provider = "gemini"
	}
	if cfg.Profile.Model == "" {
		cfg.Profile.Model = "gemini-2.5-flash"
	}
	if cfg.Profile.Timeout == 0 {
		cfg.Profile.Timeout = 60 * time.Second
	}
	if cfg.Ranking.TopK == 0 {
		cfg.Ranking.TopK = 3000
	}
	if cfg.Ranking.PageSize == 0 {
		cfg.Ranking.PageSize = 5
	}
	if cfg.Ranking.MaxPageSize == 0 {
		cfg.Ranking.MaxPageSize = 50
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "matchfeed"
	}
}
