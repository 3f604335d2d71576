package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"market-advisor/internal/advisor"
	"market-advisor/internal/advisor/advisorobs"
	"market-advisor/internal/api"
	"market-advisor/internal/indicators"
	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/market"
	"market-advisor/internal/news"
	"market-advisor/internal/recommend"
	"market-advisor/internal/reportlog"
	"market-advisor/internal/sentiment"
	"market-advisor/internal/store"
	"market-advisor/internal/types"
)

// app holds everything a subcommand needs.
type app struct {
	cfg     *store.Config
	advisor interfaces.Advisor
	yahoo   *market.Yahoo
	cache   *market.Cache
	news    *news.Service
	reports *reportlog.Log
}

// initializeSystem loads .env and starts the logger (and tracer when
// LOG_TRACING_ENABLED is set).
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug(context.Background(), "Logger initialized", "tracing", logger.IsTracingEnabled())
	return nil
}

// loadConfig reads path, falling back to built-in defaults when the file
// does not exist.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		return store.Default(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

func retryConfig(cfg *store.Config) *api.RetryConfig {
	r := cfg.Market.Retry
	return &api.RetryConfig{MaxAttempts: r.MaxAttempts, InitialWait: r.InitialWait, MaxWait: r.MaxWait}
}

// initializeMarkets builds the equity and fund data sources.
func initializeMarkets(ctx context.Context, cfg *store.Config, cache *market.Cache) (map[types.AssetClass]interfaces.MarketData, *market.Yahoo, error) {
	retry := retryConfig(cfg)
	yahoo := market.NewYahoo(api.NewClient(
		api.WithBaseURL(market.YahooBaseURL),
		api.WithHeaders(api.YahooFinanceHeaders()),
		api.WithTimeout(cfg.Market.Timeout),
		api.WithRateLimit(cfg.Market.RequestsPerMinute, 2),
		api.WithLogging(logger.IsDebugEnabled()),
	), retry, cache)

	markets := make(map[types.AssetClass]interfaces.MarketData, 2)

	switch cfg.DataSource {
	case "KITE":
		kite, err := market.NewKite(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("data_source KITE: %w", err)
		}
		logger.Info(ctx, "Using Zerodha Kite for equity prices, Yahoo Finance for fundamentals")
		markets[types.AssetEquity] = market.Composite{Prices: kite, Fundamental: yahoo}
	default:
		logger.Info(ctx, "Using Yahoo Finance for equity data")
		markets[types.AssetEquity] = yahoo
	}

	switch cfg.FundSource {
	case "YAHOO":
		logger.Info(ctx, "Using Yahoo Finance for fund data")
		markets[types.AssetFund] = yahoo
	default:
		logger.Info(ctx, "Using MFAPI for fund NAV history")
		markets[types.AssetFund] = market.NewMFAPI(api.NewClient(
			api.WithBaseURL(market.MFAPIBaseURL),
			api.WithHeaders(api.BrowserHeaders()),
			api.WithTimeout(cfg.Market.Timeout),
			api.WithRateLimit(cfg.Market.RequestsPerMinute, 2),
			api.WithLogging(logger.IsDebugEnabled()),
		), retry, cache)
	}
	return markets, yahoo, nil
}

// initializeNews builds the news service from the configured sources. The
// google source, when listed, is used only as the fallback.
func initializeNews(ctx context.Context, cfg *store.Config) *news.Service {
	var (
		primary  []interfaces.NewsSource
		fallback interfaces.NewsSource
	)
	for _, name := range cfg.News.Sources {
		switch name {
		case "newsapi":
			key := os.Getenv(cfg.News.APIKeyEnv)
			if key == "" {
				logger.Warn(ctx, "NewsAPI key not set, skipping source", "env", cfg.News.APIKeyEnv)
				continue
			}
			primary = append(primary, news.NewNewsAPI(api.NewClient(
				api.WithBaseURL(news.NewsAPIBaseURL),
				api.WithTimeout(cfg.Market.Timeout),
			), retryConfig(cfg), key))
		case "scraper":
			primary = append(primary, news.NewScraper(news.DefaultSites(), cfg.News.ScraperTimeout))
		case "google":
			fallback = news.NewGoogleNews(news.GoogleNewsBaseURL, cfg.News.ScraperTimeout)
		}
	}

	return news.NewService(news.Config{
		Enabled:     cfg.News.Enabled,
		MaxArticles: cfg.News.MaxArticles,
		Lookback:    time.Duration(cfg.News.LookbackDays) * 24 * time.Hour,
		CacheTTL:    cfg.News.CacheTTL,
	}, fallback, primary...)
}

// initializeReportLog opens the report log and compresses old days.
func initializeReportLog(ctx context.Context, cfg *store.Config) *reportlog.Log {
	if !cfg.ReportLog.Enabled {
		return nil
	}
	l := reportlog.New(cfg.ReportLog.Dir)
	if cfg.ReportLog.RetentionDays > 0 {
		n, err := l.CompressOlder(cfg.ReportLog.RetentionDays)
		if err != nil {
			logger.Warn(ctx, "Failed to compress old report logs", "error", err)
		} else if n > 0 {
			logger.Info(ctx, "Compressed old report logs", "files", n)
		}
	}
	return l
}

// bootstrap wires the advisor and its data sources from cfg.
func bootstrap(ctx context.Context, cfg *store.Config) (*app, error) {
	cache, err := market.NewCache(cfg.Market.CacheDir, cfg.Market.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("market cache: %w", err)
	}

	markets, yahoo, err := initializeMarkets(ctx, cfg, cache)
	if err != nil {
		return nil, err
	}

	eng, err := recommend.New(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		yahoo:   yahoo,
		cache:   cache,
		news:    initializeNews(ctx, cfg),
		reports: initializeReportLog(ctx, cfg),
	}

	opts := advisor.Options{
		Markets:      markets,
		News:         a.news,
		Calculator:   indicators.NewCalculator(cfg.Indicators),
		Scorer:       sentiment.NewScorer(cfg.Sentiment, sentiment.DefaultLexicon()),
		Engine:       eng,
		Period:       cfg.Period,
		Concurrency:  cfg.Screen.Concurrency,
		FetchTimeout: 2 * cfg.Market.Timeout,
	}
	if a.reports != nil {
		opts.Sink = a.reports
	}
	base, err := advisor.New(opts)
	if err != nil {
		return nil, err
	}

	// Wrap with observability middleware
	a.advisor = advisorobs.Wrap(base)
	return a, nil
}
