package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/user/headline-scraper/internal/adapter/chromedp_browser"
	"github.com/user/headline-scraper/internal/adapter/postgres"
	redis_adapter "github.com/user/headline-scraper/internal/adapter/redis"
	"github.com/user/headline-scraper/internal/adapter/smtp"
	"github.com/user/headline-scraper/internal/adapter/static_browser"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/internal/usecase"
	"github.com/user/headline-scraper/pkg/config"
	"github.com/user/headline-scraper/pkg/logger"
	"go.uber.org/zap"
)

// app is the wired pipeline plus everything that must be released on exit.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	runner    *usecase.Runner
	headlines repository.HeadlineRepository // nil without PostgreSQL
	closers   []func()
}

func loadConfig(overrides map[string]any) (*config.Config, *zap.Logger, func() error, error) {
	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, closeLog, nil
}

func newApp(ctx context.Context, cfg *config.Config, notifier *usecase.Notifier, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	// --- Storage ---
	if cfg.PostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		repo := postgres.NewHeadlineRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("create postgres schema: %w", err)
		}
		a.headlines = repo
		log.Info("PostgreSQL connection pool established")
	}

	var linkCache repository.LinkStatusCache
	if cfg.ValidateLinks && cfg.RedisAddr != "" {
		rdb, err := redis_adapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("Link status cache unavailable, probing every link", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			linkCache = redis_adapter.NewLinkCache(rdb)
			log.Info("Redis connection established")
		}
	}

	// --- Pipeline ---
	waiter := usecase.NewWaiter(cfg.WaitTimeout, cfg.PollInterval)
	var links *usecase.LinkChecker
	if cfg.ValidateLinks {
		links = usecase.NewLinkChecker(nil, linkCache, cfg.LinkCacheTTL, cfg.UserAgent, log)
	}

	scraper := usecase.NewScraper(usecase.ScraperConfig{
		Browser:   newBrowser(cfg, log),
		Container: repository.Locator(cfg.ContainerSelector),
		Waiter:    waiter,
		Extractor: usecase.NewExtractor(usecase.FieldLocators{
			Headline:  repository.Locator(cfg.HeadlineSelector),
			Link:      repository.Locator(cfg.LinkSelector),
			Timestamp: repository.Locator(cfg.TimestampSelector),
		}, cfg.RetryAttempts, cfg.RetryDelay, log),
		Paginator:   usecase.NewPaginator(repository.Locator(cfg.NextSelector), waiter, log),
		LinkChecker: links,
		ScrollTimes: cfg.ScrollTimes,
		ScrollPause: cfg.ScrollPause,
		Logger:      log,
	})

	sinks, err := a.sinks()
	if err != nil {
		a.close()
		return nil, err
	}

	a.runner = usecase.NewRunner(usecase.RunnerConfig{
		Site: cfg.Site,
		Defaults: usecase.RunOptions{
			TargetURL:        cfg.TargetURL,
			Pages:            cfg.Pages,
			HeadlinesPerPage: cfg.HeadlinesPerPage,
			Recipient:        cfg.NotifyEmail,
		},
		Scraper:     scraper,
		Exporter:    usecase.NewExporter(sinks, log),
		Notifier:    notifier,
		MetricsFile: cfg.MetricsFile,
		Logger:      log,
	})
	return a, nil
}

func newBrowser(cfg *config.Config, log *zap.Logger) repository.Browser {
	if cfg.BrowserDriver == "static" {
		return static_browser.NewBrowser(nil, cfg.UserAgent, log)
	}
	return chromedp_browser.NewBrowser(chromedp_browser.Options{
		Headless:      cfg.Headless,
		UserAgent:     cfg.UserAgent,
		ActionTimeout: cfg.ActionTimeout,
	}, log)
}

func (a *app) sinks() ([]usecase.Sink, error) {
	var sinks []usecase.Sink
	for _, format := range a.cfg.ExportFormats {
		if format == "postgres" {
			continue
		}
		s, err := usecase.NewFileSink(format, a.cfg.OutputDir, a.cfg.OutputBaseName)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if slices.Contains(a.cfg.ExportFormats, "postgres") && a.headlines != nil {
		sinks = append(sinks, usecase.NewRepositorySink(a.headlines))
	}
	return sinks, nil
}

// newNotifier returns nil when no sender account is configured. recipient is the address
// reports will go to, after flags and prompts.
func newNotifier(cfg *config.Config, recipient string, log *zap.Logger) *usecase.Notifier {
	if cfg.EmailAddress == "" || cfg.SMTPServer == "" {
		if recipient != "" {
			log.Warn("Email recipient set but no sender account is configured, email reports disabled",
				zap.String("recipient", recipient))
		}
		return nil
	}
	transport := smtp.NewTransport(smtp.Config{
		Host:        cfg.SMTPServer,
		Port:        cfg.SMTPPort,
		TLSOptional: cfg.SMTPTLSOptional,
		Username:    cfg.EmailAddress,
		Password:    cfg.EmailPassword,
	})
	return usecase.NewNotifier(transport, cfg.NotifyAttempts, cfg.NotifyRetryDelay, log)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// reportFailure emails a failure that happened before a run could start. It outlives a
// cancelled ctx so an interrupted startup is still reported.
func reportFailure(ctx context.Context, notifier *usecase.Notifier, recipient string, cause error, log *zap.Logger) {
	if notifier == nil || recipient == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := notifier.ReportFailure(ctx, recipient, cause); err != nil {
		log.Error("Email notification not sent", zap.Error(err))
	}
}
