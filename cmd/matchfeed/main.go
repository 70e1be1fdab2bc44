// Package main is the matchfeed CLI entry point.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/auth"
	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/cli"
	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/cursor"
	"github.com/hyperjump/matchfeed/internal/delivery"
	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/extract"
	"github.com/hyperjump/matchfeed/internal/matching"
	"github.com/hyperjump/matchfeed/internal/profile"
	"github.com/hyperjump/matchfeed/internal/server"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/matchfeed/config.yaml"
	defaultTokenTTL   = 24 * time.Hour
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory so that "matchfeed server" from a project dir uses
// the project's config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "rank":
		runRank()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "token":
		runToken()
	case "version", "--version", "-v":
		fmt.Printf("matchfeed version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config and builds a logger; debug forces debug logging on.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	verifier, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal("auth.jwt_secret (or "+config.EnvJWTSecret+") is required", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if path := cfg.Catalog.ImportPath; path != "" {
		if _, err := components.Importer.SyncFile(ctx, path); err != nil {
			logger.Warn("initial catalog import failed", zap.String("path", path), zap.Error(err))
		}
		if cfg.Catalog.Watch {
			w := catalog.NewWatcher(path, func(p string) {
				if _, err := components.Importer.SyncFile(ctx, p); err != nil {
					logger.Warn("catalog re-import failed", zap.String("path", p), zap.Error(err))
				}
			}, catalog.WithWatcherLogger(logger))
			if err := w.Start(ctx); err != nil {
				logger.Fatal("Failed to start catalog watcher", zap.Error(err))
			}
			defer w.Stop()
		}
	}
	ensureKeywordIndex(ctx, components, logger)

	sessions := delivery.NewManager(components.Cursors, components.Catalog, verifier, delivery.WithLogger(logger))
	srv := server.NewServer(
		components.Service,
		sessions,
		components.Catalog,
		components.Index,
		verifier,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// ensureKeywordIndex rebuilds an empty keyword index from a non-empty catalog.
func ensureKeywordIndex(ctx context.Context, c *Components, logger *zap.Logger) {
	docs, err := c.Index.DocCount()
	if err != nil || docs > 0 {
		return
	}
	n, err := c.Importer.Reindex(ctx)
	if err != nil {
		logger.Warn("keyword index rebuild failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("keyword index rebuilt", zap.Int("jobs", n))
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sync := fs.Bool("sync", false, "remove jobs that are not in the file")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fail("Usage: matchfeed import [flags] <catalog.json>")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fail("%v", err)
	}
	path := fs.Arg(0)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()

	var stats *catalog.ImportStats
	if *sync {
		stats, err = components.Importer.SyncFile(ctx, path)
	} else {
		stats, err = components.Importer.ImportFile(ctx, path)
	}
	if err != nil {
		fail("Import failed: %v", err)
	}
	if err := cli.WriteImportStats(os.Stdout, path, stats, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runRank() {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	show := fs.Int("show", 0, "number of ranked ids to print (0 = configured page size)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fail("Usage: matchfeed rank [flags] <candidate-id>")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fail("%v", err)
	}
	candidateID := fs.Arg(0)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()

	if _, err := components.Service.TriggerRanking(ctx, candidateID); err != nil {
		fail("Ranking failed: %v", err)
	}
	page, err := components.Service.FetchPage(ctx, candidateID, *show)
	if err != nil {
		fail("Reading ranking failed: %v", err)
	}
	if err := cli.WriteRanking(os.Stdout, candidateID, page.IDs, page.Total, page.Cursor, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags given after positional arguments to the front so the flag
// package sees them.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	query := buildSearchQuery(fs.Args())
	if query == "" {
		fail("Usage: matchfeed search [flags] <query>")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fail("%v", err)
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()
	ensureKeywordIndex(ctx, components, logger)

	found, err := components.Index.Search(ctx, query, *limit, &catalog.SearchOptions{Fuzzy: *fuzzy})
	if err != nil {
		fail("Search failed: %v", err)
	}
	hits := make([]cli.SearchHit, 0, len(found))
	for _, h := range found {
		job, err := components.Catalog.Get(ctx, h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, cli.SearchHit{Job: job, Score: h.Score})
	}
	if err := cli.WriteSearchHits(os.Stdout, query, hits, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fail("%v", err)
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()

	jobs, err := components.Catalog.Count(ctx)
	if err != nil {
		fail("Count jobs failed: %v", err)
	}
	docs, err := components.Index.DocCount()
	if err != nil {
		fail("Count keyword index failed: %v", err)
	}
	status := &cli.Status{
		Jobs:             jobs,
		KeywordIndexDocs: docs,
		StorageBackend:   cfg.Storage.Backend,
		EmbeddingModel:   cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		EmbeddingDims:    cfg.Embedding.Dimensions,
		TopK:             cfg.Ranking.TopK,
		DatabasePath:     cfg.Storage.DatabasePath,
		CatalogIndexPath: cfg.Storage.CatalogIndexPath,
	}
	paths := []string{cfg.Storage.DatabasePath, cfg.Storage.CatalogIndexPath}
	if cfg.Storage.Backend == string(cursor.BackendBadger) {
		paths = append(paths, cfg.Storage.BadgerPath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runToken() {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	ttl := fs.Duration("ttl", defaultTokenTTL, "token lifetime")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fail("Usage: matchfeed token [flags] <candidate-id>")
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	verifier, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		fail("Failed to create token issuer: %v", err)
	}
	token, err := verifier.Issue(fs.Arg(0), *ttl)
	if err != nil {
		fail("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

// Components holds the wired stores and services of one process.
type Components struct {
	DB       *sql.DB
	Catalog  catalog.Store
	Index    *catalog.KeywordIndex
	Importer *catalog.Importer
	Profiles profile.Store
	Cursors  cursor.Store
	Embedder embedding.Embedder
	Service  *matching.Service
}

// Close releases every component that holds resources.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Cursors != nil {
		_ = c.Cursors.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

// initializeComponents opens storage and indices. The embedder, the resume extractor and the
// matching service are only built when withRanking is set, since remote providers need keys.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withRanking bool) (*Components, error) {
	db, err := storage.OpenSQLite(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{DB: db}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	jobs, err := catalog.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	c.Catalog = jobs
	if c.Index, err = catalog.NewKeywordIndex(cfg.Storage.CatalogIndexPath); err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Importer = catalog.NewImporter(jobs, c.Index,
		catalog.WithLogger(logger),
		catalog.WithDimensions(cfg.Embedding.Dimensions),
	)
	if c.Profiles, err = profile.NewSQLiteStore(db); err != nil {
		return nil, err
	}
	if c.Cursors, err = cursor.NewStore(cfg.Storage.Backend, db, cfg.Storage.BadgerPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ranking store: %w", err)
	}

	if withRanking {
		if c.Embedder, err = embedding.NewEmbedder(ctx, cfg.Embedding, logger); err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		opts := []matching.Option{
			matching.WithLogger(logger),
			matching.WithTopK(cfg.Ranking.TopK),
			matching.WithPageSize(cfg.Ranking.PageSize, cfg.Ranking.MaxPageSize),
			matching.WithEmbedTimeout(cfg.Embedding.Timeout),
		}
		if extractor := newExtractor(ctx, cfg.Profile, logger); extractor != nil {
			opts = append(opts, matching.WithResumeParsing(extractor, extract.NewExtractor(0), cfg.Profile.Timeout))
		}
		c.Service = matching.New(c.Profiles, c.Catalog, c.Cursors, c.Embedder, opts...)
	}
	ok = true
	return c, nil
}

// newExtractor returns the configured resume extractor, or nil when resume parsing is off.
func newExtractor(ctx context.Context, cfg config.ProfileConfig, logger *zap.Logger) profile.Extractor {
	if cfg.Provider != "gemini" {
		return nil
	}
	extractor, err := profile.NewGeminiExtractor(ctx, cfg.APIKey, cfg.Model, logger)
	if err != nil {
		logger.Warn("resume parsing disabled", zap.Error(err))
		return nil
	}
	return extractor
}

func printUsage() {
	fmt.Println(`matchfeed - Semantic job matching with resumable one-at-a-time delivery

Usage:
  matchfeed server [flags]                 Start the HTTP and WebSocket server
  matchfeed import [flags] <catalog.json>  Import a catalog dump with embeddings
  matchfeed rank [flags] <candidate-id>    Run a ranking pass for a candidate
  matchfeed search [flags] <query>         Keyword search over the catalog
  matchfeed status [flags]                 Show catalog, index and storage status
  matchfeed token [flags] <candidate-id>   Issue an identity token for a candidate
  matchfeed version                        Show version
  matchfeed help                           Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/matchfeed/config.yaml)
  --output string    Output format: text or json (import, rank, search, status)

Server Flags:
  --debug            Enable debug logging

Import Flags:
  --sync             Remove jobs that are not in the file

Rank Flags:
  --show int         Number of ranked ids to print (default: ranking.page_size)

Search Flags:
  --limit int        Number of results (default: 10)
  --fuzzy            Enable fuzzy matching for typo tolerance

Token Flags:
  --ttl duration     Token lifetime (default: 24h)

Environment:
  GEMINI_API_KEY         API key for Gemini embeddings and resume parsing
  MATCHFEED_JWT_SECRET   Secret for identity tokens

Examples:
  matchfeed import --sync database_with_embeddings.json
  matchfeed server
  matchfeed rank --show 10 candidate-42
  matchfeed search --fuzzy "golang backnd"
  matchfeed token --ttl 1h candidate-42`)
}
