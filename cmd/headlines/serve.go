package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/headline-scraper/internal/delivery/http/handler"
	"github.com/user/headline-scraper/internal/delivery/http/router"
	"github.com/user/headline-scraper/internal/usecase"
	"go.uber.org/zap"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scraper over HTTP",
	Long: `Starts an HTTP API that triggers scrape runs on demand (POST /api/runs), reports the latest
run, lists stored headlines and exposes Prometheus metrics. With SCHEDULE set, runs are also
started on that cron schedule.`,
	RunE: runServeCmd,
}

var servePort string

func init() {
	serveCommand.Flags().StringVar(&servePort, "port", "", "Port to listen on (defaults to SERVER_PORT)")
	rootCmd.AddCommand(serveCommand)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("port") {
		overrides["SERVER_PORT"] = servePort
	}
	cfg, log, closeLog, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Dependencies ---
	notifier := newNotifier(cfg, cfg.NotifyEmail, log)
	a, err := newApp(ctx, cfg, notifier, log)
	if err != nil {
		log.Error("Could not initialise scraper", zap.Error(err))
		reportFailure(ctx, notifier, cfg.NotifyEmail, err, log)
		return err
	}
	defer a.close()

	manager := usecase.NewRunManager(a.runner, log)
	if cfg.Schedule != "" {
		go func() {
			if err := manager.Schedule(ctx, cfg.Schedule); err != nil {
				log.Error("Scheduler stopped", zap.Error(err))
			}
		}()
		log.Info("Scheduled runs enabled", zap.String("schedule", cfg.Schedule))
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(ctx, manager, a.headlines, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	manager.Wait()
	log.Info("Server exiting")
	return nil
}
