package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/usecase"
	"go.uber.org/zap"
)

var scrapeCommand = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape headlines once and export them",
	Long: `Opens the configured news site, collects headlines from one or more pages, writes them to
the configured export formats and, when a recipient is set, emails a status report.

The process exits non-zero when the run fails.`,
	RunE: runScrapeCmd,
}

var (
	scrapeSite        string
	scrapeURL         string
	scrapePages       int
	scrapePerPage     int
	scrapeEmail       string
	scrapeDriver      string
	scrapeInteractive bool
)

func init() {
	scrapeCommand.Flags().StringVar(&scrapeSite, "site", "", "Site preset: cnn, bbc or custom (defaults to SITE)")
	scrapeCommand.Flags().StringVarP(&scrapeURL, "url", "u", "", "Page to start from (defaults to the preset's URL)")
	scrapeCommand.Flags().IntVarP(&scrapePages, "pages", "p", 0, "Number of pages to scrape")
	scrapeCommand.Flags().IntVarP(&scrapePerPage, "per-page", "n", 0, "Maximum headlines per page")
	scrapeCommand.Flags().StringVarP(&scrapeEmail, "email", "e", "", "Recipient of the status email")
	scrapeCommand.Flags().StringVar(&scrapeDriver, "driver", "", "Browser driver: chrome or static")
	scrapeCommand.Flags().BoolVarP(&scrapeInteractive, "interactive", "i", false, "Ask for pages, headlines per page and recipient")

	rootCmd.AddCommand(scrapeCommand)
}

// flagOverrides maps the flags the user actually set onto configuration keys.
func flagOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	set := func(flag, key string, value any) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("site", "SITE", scrapeSite)
	set("url", "TARGET_URL", scrapeURL)
	set("pages", "PAGES", scrapePages)
	set("per-page", "HEADLINES_PER_PAGE", scrapePerPage)
	set("email", "NOTIFY_EMAIL", scrapeEmail)
	set("driver", "BROWSER_DRIVER", scrapeDriver)
	return overrides
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, closeLog, err := loadConfig(flagOverrides(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	opts := usecase.RunOptions{}
	if scrapeInteractive {
		p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		if opts, err = p.runOptions(cfg.Pages, cfg.HeadlinesPerPage, cfg.NotifyEmail); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recipient := opts.Recipient
	if recipient == "" {
		recipient = cfg.NotifyEmail
	}
	notifier := newNotifier(cfg, recipient, log)

	a, err := newApp(ctx, cfg, notifier, log)
	if err != nil {
		log.Error("Could not initialise scraper", zap.Error(err))
		reportFailure(ctx, notifier, recipient, err, log)
		return err
	}
	defer a.close()

	run, err := a.runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	printRun(cmd, run)
	return nil
}

func printRun(cmd *cobra.Command, run *entity.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTop headlines (%s):\n", run.TargetURL)
	for _, r := range run.Records {
		fmt.Fprintf(out, "%d. %s\n   Link: %s\n   Published: %s\n", r.Rank, r.Headline, r.Link, r.PublishedTime)
		if r.LinkStatus != "" {
			fmt.Fprintf(out, "   Link Status: %s\n", r.LinkStatus)
		}
	}
	fmt.Fprintf(out, "\nStatus: %s, %d headlines from %d page(s) in %s\n",
		run.Status, len(run.Records), run.Pages, run.Duration().Round(time.Millisecond))
	for _, e := range run.Exports {
		if e.Error != "" {
			fmt.Fprintf(out, "  %s: failed (%s)\n", e.Format, e.Error)
		} else if e.Path != "" {
			fmt.Fprintf(out, "  %s: %s\n", e.Format, e.Path)
		}
	}
}
