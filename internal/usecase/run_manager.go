package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorhill/cronexpr"
	"github.com/user/headline-scraper/internal/entity"
	"go.uber.org/zap"
)

var ErrRunInProgress = errors.New("a scrape run is already in progress")

// RunExecutor runs the scrape pipeline once.
type RunExecutor interface {
	Run(ctx context.Context, opts RunOptions) (*entity.RunResult, error)
}

// RunManager makes sure runs never overlap, remembers the latest result and drives schedules.
type RunManager struct {
	executor RunExecutor
	running  sync.Mutex

	mu     sync.RWMutex
	latest *entity.RunResult

	clock  clock
	logger *zap.Logger
}

func NewRunManager(executor RunExecutor, logger *zap.Logger) *RunManager {
	return &RunManager{executor: executor, clock: realClock{}, logger: logger}
}

// Trigger runs the pipeline now, or returns ErrRunInProgress if another run holds the session.
func (m *RunManager) Trigger(ctx context.Context, opts RunOptions) (*entity.RunResult, error) {
	if !m.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer m.running.Unlock()
	return m.execute(ctx, opts)
}

func (m *RunManager) execute(ctx context.Context, opts RunOptions) (*entity.RunResult, error) {
	run, err := m.executor.Run(ctx, opts)
	if run != nil {
		m.mu.Lock()
		m.latest = run
		m.mu.Unlock()
	}
	return run, err
}

// Start launches a run in the background and returns immediately. It reports
// ErrRunInProgress synchronously so callers can reject the request.
func (m *RunManager) Start(ctx context.Context, opts RunOptions) error {
	if !m.running.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer m.running.Unlock()
		if _, err := m.execute(ctx, opts); err != nil {
			m.logger.Error("Background run failed", zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until no run is in progress.
func (m *RunManager) Wait() {
	m.running.Lock()
	defer m.running.Unlock()
}

// Latest returns the most recent run result, or nil before the first run.
func (m *RunManager) Latest() *entity.RunResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Schedule triggers a run at every activation of the cron expression until ctx is done.
// Activations that find a run in progress are skipped.
func (m *RunManager) Schedule(ctx context.Context, expr string) error {
	schedule, err := cronexpr.Parse(expr)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	for {
		now := m.clock.Now()
		next := schedule.Next(now)
		if next.IsZero() {
			return fmt.Errorf("schedule %q has no future activation", expr)
		}
		m.logger.Info("Next scheduled run", zap.Time("at", next))

		if err := m.clock.Sleep(ctx, next.Sub(now)); err != nil {
			return nil
		}

		if _, err := m.Trigger(ctx, RunOptions{}); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				m.logger.Warn("Skipping scheduled run, previous run still in progress")
			} else {
				m.logger.Error("Scheduled run failed", zap.Error(err))
			}
		}
	}
}
