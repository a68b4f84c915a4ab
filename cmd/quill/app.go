package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/FranksOps/quill/internal/articles"
	"github.com/FranksOps/quill/internal/config"
	"github.com/FranksOps/quill/internal/enhance"
	"github.com/FranksOps/quill/internal/extract"
	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/internal/scraper"
	"github.com/FranksOps/quill/internal/serp"
	"github.com/FranksOps/quill/internal/storage"
	"github.com/FranksOps/quill/internal/storage/csvbackend"
	"github.com/FranksOps/quill/internal/storage/jsonbackend"
	"github.com/FranksOps/quill/internal/storage/postgres"
	"github.com/FranksOps/quill/internal/storage/sqlite"
	"github.com/FranksOps/quill/pkg/proxy"
	"github.com/FranksOps/quill/pkg/ratelimit"
)

// robotsAgent is the token matched against robots.txt groups.
const robotsAgent = "quill"

// setup loads configuration and installs the default logger.
func setup(g *globalFlags, stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// components are the collaborators a pipeline run or check needs.
type components struct {
	store     *articles.Client
	search    *serp.Google
	extractor *extract.Extractor
	model     *llm.OpenRouter
	enhancer  *enhance.Enhancer
}

func build(cfg config.Config, logger *slog.Logger) (*components, error) {
	store, err := articles.NewClient(articles.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	var proxies *proxy.Pool
	if cfg.ProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(cfg.ProxyFile); err != nil {
			return nil, err
		}
		logger.Info("proxy rotation enabled", "count", proxies.Len())
	}

	fetchConfig := func(limiter *ratelimit.Limiter) scraper.FetchConfig {
		return scraper.FetchConfig{
			Timeout:     cfg.RequestTimeout,
			ProxyPool:   proxies,
			Fingerprint: profile,
			Limiter:     limiter,
			Logger:      logger,
		}
	}

	searchPacing := ratelimit.NewLimiter(cfg.SearchDelay, 0)
	extractPacing := ratelimit.NewLimiter(cfg.ExtractDelay, 0)
	enhancePacing := ratelimit.NewLimiter(cfg.EnhanceDelay, 0)
	logger.Debug("pacing",
		"search", searchPacing.Interval(),
		"extract", extractPacing.Interval(),
		"enhance", enhancePacing.Interval())

	searchFetcher, err := scraper.NewFetcher(fetchConfig(searchPacing))
	if err != nil {
		return nil, err
	}
	pageCfg := fetchConfig(nil)
	pageCfg.UseCookieJar = true
	pageFetcher, err := scraper.NewFetcher(pageCfg)
	if err != nil {
		return nil, err
	}

	var robots extract.RobotsChecker
	if cfg.RespectRobots {
		robots = scraper.NewRobotsAuditor(pageFetcher, robotsAgent, logger)
	}

	model, err := llm.NewOpenRouter(llm.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.OpenRouterModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &components{
		store: store,
		search: serp.NewGoogle(searchFetcher, serp.GoogleConfig{
			BaseURL: cfg.SearchURL,
			Logger:  logger,
		}),
		extractor: extract.New(pageFetcher, extract.Config{
			Limiter: extractPacing,
			Robots:  robots,
			Logger:  logger,
		}),
		model: model,
		enhancer: enhance.New(model, enhance.Config{
			MaxTokens:   cfg.MaxTokens,
			Temperature: &cfg.Temperature,
			Limiter:     enhancePacing,
			Logger:      logger,
		}),
	}, nil
}

// openHistory picks a ledger backend from dsn. An empty dsn disables the ledger.
//
//	sqlite:<path>             SQLite database file (":memory:" works too)
//	<path>.db, <path>.sqlite  SQLite database file
//	postgres://...            PostgreSQL
//	<path>.jsonl              newline-delimited JSON
//	<path>.csv                CSV
func openHistory(ctx context.Context, dsn string) (storage.Backend, error) {
	lower := strings.ToLower(dsn)
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(lower, "sqlite:"):
		return sqlite.New(dsn[len("sqlite:"):])
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.New(ctx, dsn)
	case strings.HasSuffix(lower, ".jsonl"), strings.HasSuffix(lower, ".ndjson"):
		return jsonbackend.New(dsn)
	case strings.HasSuffix(lower, ".csv"):
		return csvbackend.New(dsn)
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return sqlite.New(dsn)
	}
	return nil, fmt.Errorf("history: unrecognized dsn %q", dsn)
}

var errUsage = errors.New("usage")

// parseLimit parses the optional positional limit of enhance.
func parseLimit(args []string, fallback int) (int, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got %q", errUsage, args[0])
	}
	return n, nil
}

func closeHistory(h storage.Backend, logger *slog.Logger) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		logger.Warn("history close failed", "err", err)
	}
}
