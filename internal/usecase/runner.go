package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/pkg/metrics"
	"go.uber.org/zap"
)

const (
	successSubject = "Web Scraping Completed Successfully"
	failureSubject = "Web Scraping Error"

	notifyTimeout = time.Minute
)

// RunOptions parameterise one run. Zero values fall back to the runner's defaults.
type RunOptions struct {
	TargetURL        string
	Pages            int
	HeadlinesPerPage int
	Recipient        string
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Site        string
	Defaults    RunOptions
	Scraper     *Scraper
	Exporter    *Exporter
	Notifier    *Notifier // nil disables email reports
	MetricsFile string
	Logger      *zap.Logger
}

// Runner executes the full pipeline: scrape, export, report.
type Runner struct {
	site        string
	defaults    RunOptions
	scraper     *Scraper
	exporter    *Exporter
	notifier    *Notifier
	metricsFile string
	clock       clock
	logger      *zap.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		site:        cfg.Site,
		defaults:    cfg.Defaults,
		scraper:     cfg.Scraper,
		exporter:    cfg.Exporter,
		notifier:    cfg.Notifier,
		metricsFile: cfg.MetricsFile,
		clock:       realClock{},
		logger:      cfg.Logger,
	}
}

// Run executes one scrape. Failures that leave nothing to export are logged with a trace,
// reported by email and returned; everything else is contained and reflected in the result.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (run *entity.RunResult, err error) {
	opts = r.withDefaults(opts)
	run = &entity.RunResult{
		ID:        uuid.NewString(),
		Site:      r.site,
		TargetURL: opts.TargetURL,
		StartedAt: r.clock.Now(),
	}
	logger := r.logger.With(zap.String("run_id", run.ID))

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scrape run panicked: %v", p)
		}
		if err != nil {
			r.fail(ctx, logger, run, opts.Recipient, err)
		}
		r.record(logger, run)
	}()

	scraped, err := r.scraper.Scrape(ctx, ScrapeOptions{
		TargetURL:        opts.TargetURL,
		Pages:            opts.Pages,
		HeadlinesPerPage: opts.HeadlinesPerPage,
	})
	if err != nil {
		return run, err
	}

	run.Records = scraped.Records
	run.Pages = scraped.Pages
	run.Skipped = scraped.Skipped
	run.Status = entity.RunSucceeded
	if scraped.Interrupted != nil {
		run.Status = entity.RunPartial
		run.FailureReason = scraped.Interrupted.Error()
	}

	if len(run.Records) > 0 {
		run.Exports = r.exporter.Export(ctx, run)
	} else {
		logger.Warn("No headlines extracted, nothing to export")
	}
	run.FinishedAt = r.clock.Now()

	r.notify(ctx, logger, opts.Recipient, successSubject, successBody(run, scraped))
	return run, nil
}

func (r *Runner) withDefaults(opts RunOptions) RunOptions {
	if opts.TargetURL == "" {
		opts.TargetURL = r.defaults.TargetURL
	}
	if opts.Pages <= 0 {
		opts.Pages = r.defaults.Pages
	}
	if opts.HeadlinesPerPage <= 0 {
		opts.HeadlinesPerPage = r.defaults.HeadlinesPerPage
	}
	if opts.Recipient == "" {
		opts.Recipient = r.defaults.Recipient
	}
	return opts
}

func (r *Runner) fail(ctx context.Context, logger *zap.Logger, run *entity.RunResult, recipient string, err error) {
	run.Status = entity.RunFailed
	run.FailureReason = err.Error()
	run.FinishedAt = r.clock.Now()
	logger.Error("Scrape run failed", zap.Error(err), zap.Stack("trace"))
	r.notify(ctx, logger, recipient, failureSubject, failureBody(err))
}

func failureBody(err error) string {
	return fmt.Sprintf("An error occurred during the web scraping process: %v", err)
}

// notify sends a report if a notifier and recipient are configured. It survives a cancelled
// run context so that cancellation itself can still be reported.
func (r *Runner) notify(ctx context.Context, logger *zap.Logger, recipient, subject, body string) {
	if r.notifier == nil || recipient == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := r.notifier.Notify(ctx, subject, body, recipient); err != nil {
		logger.Error("Email notification not sent", zap.Error(err))
	}
}

func (r *Runner) record(logger *zap.Logger, run *entity.RunResult) {
	metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	metrics.RunDuration.Observe(run.Duration().Seconds())
	logger.Info("Scrape run finished",
		zap.String("status", string(run.Status)),
		zap.Int("headlines", len(run.Records)),
		zap.Duration("duration", run.Duration()))

	if r.metricsFile != "" {
		if err := metrics.WriteTextfile(r.metricsFile); err != nil {
			logger.Warn("Failed to write metrics file", zap.String("path", r.metricsFile), zap.Error(err))
		}
	}
}

func successBody(run *entity.RunResult, scraped *ScrapeResult) string {
	var b strings.Builder
	b.WriteString("The web scraping process has completed successfully. The headlines have been saved.\n\n")
	b.WriteString(scraped.Summary())
	for _, e := range run.Exports {
		if e.Error != "" {
			fmt.Fprintf(&b, "%s export failed: %s\n", e.Format, e.Error)
			continue
		}
		if e.Path != "" {
			fmt.Fprintf(&b, "%s: %s\n", e.Format, e.Path)
		} else {
			fmt.Fprintf(&b, "%s: stored\n", e.Format)
		}
	}
	return b.String()
}

// IsUserError reports whether err stems from invalid input rather than a runtime failure.
func IsUserError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
