// Package main is the storefront CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/storefront/internal/catalog"
	"github.com/hyperjump/storefront/internal/cli"
	"github.com/hyperjump/storefront/internal/config"
	"github.com/hyperjump/storefront/internal/metrics"
	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/pricing"
	"github.com/hyperjump/storefront/internal/search"
	"github.com/hyperjump/storefront/internal/server"
	"github.com/hyperjump/storefront/internal/session"
	"github.com/hyperjump/storefront/internal/storage"
	"github.com/hyperjump/storefront/internal/watcher"
	"github.com/hyperjump/storefront/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/storefront/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, and a missing default file yields the built-in
// defaults. Returns the config and the path that was actually loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "search":
		runSearch()
	case "related":
		runRelated()
	case "products":
		runProducts()
	case "import":
		runImport()
	case "export":
		runExport()
	case "delete":
		runDelete()
	case "pricing":
		runPricing()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("storefront version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ranking decisions, catalog reloads, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Catalog.Watch && cfg.Catalog.FixturesPath != "" {
		watchSvc, err := newCatalogWatcher(cfg, components, logger)
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	opts := []server.Option{
		server.WithCatalogImport(components.Storage, components.Metrics.SetCatalogSize),
	}
	if cfg.Metrics.EnabledOrDefault() {
		opts = append(opts, server.WithMetricsHandler(cfg.Metrics.Path,
			promhttp.HandlerFor(components.Registry, promhttp.HandlerOpts{})))
	}
	srv := server.NewServer(
		components.Engine,
		components.Catalog,
		components.Sessions,
		&cfg.Server,
		logger,
		opts...,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newCatalogWatcher reloads the fixtures file into the catalog and the database each
// time it changes. A file that fails to load leaves the current catalog in place.
func newCatalogWatcher(cfg *config.Config, c *Components, logger *zap.Logger) (*watcher.Watcher, error) {
	return watcher.NewWatcher(
		[]string{cfg.Catalog.FixturesPath},
		func(path string) {
			n, err := c.Catalog.ReloadFile(context.Background(), c.Storage, path)
			if err != nil {
				logger.Warn("catalog reload failed", zap.String("path", path), zap.Error(err))
				return
			}
			c.Metrics.SetCatalogSize(n)
			logger.Info("catalog reloaded", zap.String("path", path), zap.Int("products", n))
		},
		watcher.WithLogger(logger),
	)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: storefront search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Queries understand price limits ("under $50"), categories, sale words ("deals"),
and quality words ("best"). Misspelled queries that match nothing print a
"Did you mean" line and popular fallback suggestions.

Examples:
  storefront search wireless headphones
  storefront search "electronics under $100"
  storefront search --limit 3 --json running shoes
  storefront search --offset 3 --limit 3 electronics
  storefront search --explain wireless headphones under $100
  storefront search --server http://localhost:8080 yoga mat
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "storefront search shoes --limit 3"
// would otherwise leave --limit unparsed.
func argsReorder(args []string) []string {
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
	serverURL := fs.String("server", "", "server URL (empty = rank in-process against the local catalog)")
	limit := fs.Int("limit", models.DefaultSearchLimit, "number of results")
	offset := fs.Int("offset", 0, "number of results to skip")
	explain := fs.Bool("explain", false, "show the score contribution of each signal")
	jsonOutput := fs.Bool("json", false, "print results as JSON")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := cli.ParseFormat(*jsonOutput)
	searchQuery := &models.SearchQuery{Query: queryStr, Limit: *limit, Offset: *offset, Explain: *explain}

	var response *models.SearchResponse
	if *serverURL != "" {
		r, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = r
	} else {
		components, logger := mustLocalComponents(*configPath)
		defer logger.Sync()
		defer components.Close()

		r, err := components.Engine.Search(context.Background(), searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = r
	}

	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runRelated() {
	fs := flag.NewFlagSet("related", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", search.DefaultRecommendationLimit, "number of results")
	jsonOutput := fs.Bool("json", false, "print results as JSON")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: storefront related [flags] <product-id>")
		os.Exit(1)
	}

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	response, err := components.Engine.Related(context.Background(), fs.Arg(0), "", *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Related failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, cli.ParseFormat(*jsonOutput)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runProducts() {
	fs := flag.NewFlagSet("products", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	category := fs.String("category", "", "only list products in this category")
	minPrice := fs.Float64("min-price", 0, "only list products at or above this price")
	maxPrice := fs.Float64("max-price", 0, "only list products at or below this price (0 = no limit)")
	jsonOutput := fs.Bool("json", false, "print products as JSON")
	_ = fs.Parse(os.Args[2:])

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	products := components.Catalog.Snapshot().Filter(catalog.Filter{
		Category: *category,
		MinPrice: *minPrice,
		MaxPrice: *maxPrice,
	})
	if err := cli.WriteProducts(os.Stdout, products, cli.ParseFormat(*jsonOutput)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: storefront import [flags] <catalog.yaml|catalog.xlsx>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	n, err := components.Catalog.ReloadFile(context.Background(), components.Storage, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d products from %s\n", n, path)
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "", "write to this file instead of stdout")
	_ = fs.Parse(os.Args[2:])

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	if *output == "" {
		if err := exportCatalog(os.Stdout, components); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	if err := exportCatalog(f, components); err != nil {
		_ = f.Close()
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d products to %s\n", len(components.Catalog.Products()), *output)
}

// exportCatalog writes the current catalog in the fixtures format, so it can be
// edited and imported again.
func exportCatalog(w io.Writer, c *Components) error {
	return catalog.WriteYAML(w, c.Catalog.Products())
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() == 0 {
		fmt.Println("Usage: storefront delete [flags] <product-id>...")
		os.Exit(1)
	}

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	for _, id := range fs.Args() {
		if err := components.Catalog.Delete(context.Background(), components.Storage, id); err != nil {
			fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted %s\n", id)
	}
}

func runPricing() {
	fs := flag.NewFlagSet("pricing", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	cost := fs.Float64("cost", 0, "unit cost (required)")
	stock := fs.Int("stock", 0, "units in stock")
	sales := fs.Float64("sales", 0, "units sold per week")
	competitor := fs.Float64("competitor", 0, "competitor price (0 = unknown)")
	jsonOutput := fs.Bool("json", false, "print the suggestion as JSON")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: storefront pricing --cost <cost> [flags] <product-id>")
		os.Exit(1)
	}

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	p, err := components.Catalog.Get(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pricing failed: %v\n", err)
		os.Exit(1)
	}
	suggestion, err := pricing.Suggest(p, pricing.Inputs{
		Cost:            *cost,
		Stock:           *stock,
		SalesPerWeek:    *sales,
		CompetitorPrice: *competitor,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pricing failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WritePricing(os.Stdout, p, suggestion, cli.ParseFormat(*jsonOutput)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the output of the status command.
type statusResponse struct {
	Products       int      `json:"products"`
	StoredProducts int64    `json:"stored_products"`
	Categories     []string `json:"categories"`
	Profiles       []string `json:"profiles"`
	DatabasePath   string   `json:"database_path"`
	DiskUsageBytes int64    `json:"disk_usage_bytes"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jsonOutput := fs.Bool("json", false, "print status as JSON")
	_ = fs.Parse(os.Args[2:])

	components, logger := mustLocalComponents(*configPath)
	defer logger.Sync()
	defer components.Close()

	status, err := collectStatus(context.Background(), components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Printf("Products:    %d (%d stored)\n", status.Products, status.StoredProducts)
	fmt.Printf("Categories:  %s\n", strings.Join(status.Categories, ", "))
	fmt.Printf("Profiles:    %s\n", strings.Join(status.Profiles, ", "))
	fmt.Printf("Database:    %s (%d bytes)\n", status.DatabasePath, status.DiskUsageBytes)
}

func collectStatus(ctx context.Context, c *Components) (*statusResponse, error) {
	cfg := c.Config
	stored, err := c.Storage.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	size, err := storage.DatabaseSize(cfg.Catalog.DatabasePath)
	if err != nil {
		return nil, err
	}
	profiles := make([]string, 0, len(cfg.Ranking.Profiles))
	for name := range cfg.Ranking.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return &statusResponse{
		Products:       len(c.Catalog.Products()),
		StoredProducts: stored,
		Categories:     c.Catalog.Categories(),
		Profiles:       profiles,
		DatabasePath:   cfg.Catalog.DatabasePath,
		DiskUsageBytes: size,
	}, nil
}

// mustLocalComponents loads config and components for the in-process commands,
// exiting on failure.
func mustLocalComponents(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

// Components holds the wired services shared by the server and the CLI commands.
type Components struct {
	Config   *config.Config
	Storage  *storage.SQLiteStorage
	Catalog  *catalog.Store
	Sessions *session.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Engine   *search.Engine
}

func (c *Components) Close() {
	if c.Engine != nil {
		c.Engine.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens the database and loads the catalog from it. An empty
// database is seeded from the configured fixtures file, or the built-in catalog when
// none is set.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Catalog.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	ctx := context.Background()

	cat, err := catalog.NewStore(nil, catalog.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	loaded, err := cat.LoadFromStorage(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !loaded {
		products, source, err := seedProducts(cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if err := cat.Import(ctx, store, products); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		logger.Info("catalog seeded", zap.String("source", source), zap.Int("products", len(products)))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	m.SetCatalogSize(len(cat.Products()))

	sessions := session.NewStore(rand.New(rand.NewSource(time.Now().UnixNano())))
	engine := search.NewEngine(cat, sessions, cfg.Ranking.Profiles,
		search.WithLogger(logger),
		search.WithMetrics(m),
	)

	return &Components{
		Config:   cfg,
		Storage:  store,
		Catalog:  cat,
		Sessions: sessions,
		Registry: registry,
		Metrics:  m,
		Engine:   engine,
	}, nil
}

func seedProducts(cfg *config.Config) ([]*models.Product, string, error) {
	if cfg.Catalog.FixturesPath == "" {
		return catalog.DefaultProducts(), "built-in", nil
	}
	products, err := catalog.LoadFile(cfg.Catalog.FixturesPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load fixtures: %w", err)
	}
	return products, cfg.Catalog.FixturesPath, nil
}

func printUsage() {
	fmt.Println(`storefront - Product search, chat, and recommendation service

Usage:
  storefront server [flags]                 Start the HTTP server
  storefront search [flags] <query>         Search the catalog
  storefront related [flags] <product-id>   Show products related to a product
  storefront products [flags]               List the catalog
  storefront import [flags] <file>          Replace the catalog from a .yaml or .xlsx file
  storefront export [flags]                 Write the catalog as YAML fixtures
  storefront delete [flags] <product-id>... Remove products from the catalog
  storefront pricing [flags] <product-id>   Suggest a price for a product
  storefront status [flags]                 Show catalog and database status
  storefront version                        Show version
  storefront help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/storefront/config.yaml)
  --debug            Enable debug logging (ranking decisions, catalog reloads, etc.)

Search Flags:
  --config string    Config file path (for in-process ranking)
  --server string    Server URL. Empty (default) ranks in-process against the local catalog.
  --limit int        Number of results (default: 12)
  --offset int       Number of results to skip
  --explain          Show the score contribution of each signal
  --json             Print results as JSON

Related Flags:
  --limit int        Number of results (default: 4)
  --json             Print results as JSON

Products Flags:
  --category string  Only list products in this category
  --min-price float  Only list products at or above this price
  --max-price float  Only list products at or below this price
  --json             Print products as JSON

Export Flags:
  --output string    Write to this file instead of stdout

Pricing Flags:
  --cost float       Unit cost; suggestions keep a 30% margin over it
  --stock int        Units in stock
  --sales float      Units sold per week
  --competitor float Competitor price (0 = unknown)
  --json             Print the suggestion as JSON

Examples:
  storefront server
  storefront search "electronics under $100"
  storefront search --json deals
  storefront related 3
  storefront products --category Electronics
  storefront import catalog.xlsx
  storefront export --output catalog.yaml
  storefront pricing --cost 45 --stock 8 --sales 12 1
  storefront status --json`)
}
