package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/headline-scraper/internal/entity"
	"go.uber.org/zap/zaptest"
)

type stubExecutor struct {
	mu      sync.Mutex
	calls   int
	opts    []RunOptions
	err     error
	started chan struct{}
	release chan struct{}
	after   func(calls int)
}

func (e *stubExecutor) Run(ctx context.Context, opts RunOptions) (*entity.RunResult, error) {
	e.mu.Lock()
	e.calls++
	calls := e.calls
	e.opts = append(e.opts, opts)
	e.mu.Unlock()

	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		<-e.release
	}
	if e.after != nil {
		e.after(calls)
	}
	status := entity.RunSucceeded
	if e.err != nil {
		status = entity.RunFailed
	}
	return &entity.RunResult{ID: "run", Status: status, Pages: calls}, e.err
}

func TestRunManager_TriggerRemembersLatest(t *testing.T) {
	exec := &stubExecutor{}
	m := NewRunManager(exec, zaptest.NewLogger(t))
	assert.Nil(t, m.Latest())

	run, err := m.Trigger(context.Background(), RunOptions{Pages: 1})
	require.NoError(t, err)
	assert.Same(t, run, m.Latest())

	exec.err = errors.New("navigation failed")
	failed, err := m.Trigger(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Same(t, failed, m.Latest())
	assert.Equal(t, entity.RunFailed, m.Latest().Status)
}

func TestRunManager_RejectsOverlappingRuns(t *testing.T) {
	exec := &stubExecutor{started: make(chan struct{}), release: make(chan struct{})}
	m := NewRunManager(exec, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() {
		_, err := m.Trigger(context.Background(), RunOptions{})
		done <- err
	}()
	<-exec.started

	_, err := m.Trigger(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(exec.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, exec.calls)
}

func TestRunManager_ScheduleFiresAtEachActivation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &stubExecutor{after: func(calls int) {
		if calls == 3 {
			cancel()
		}
	}}
	clock := newFakeClock() // 09:30:00
	m := NewRunManager(exec, zaptest.NewLogger(t))
	m.clock = clock

	require.NoError(t, m.Schedule(ctx, "*/5 * * * *"))
	assert.Equal(t, 3, exec.calls)
	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute, 5 * time.Minute}, clock.Sleeps())
	assert.Equal(t, RunOptions{}, exec.opts[0])
}

func TestRunManager_ScheduleKeepsGoingAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &stubExecutor{err: errors.New("chrome crashed"), after: func(calls int) {
		if calls == 2 {
			cancel()
		}
	}}
	m := NewRunManager(exec, zaptest.NewLogger(t))
	m.clock = newFakeClock()

	require.NoError(t, m.Schedule(ctx, "0 * * * *"))
	assert.Equal(t, 2, exec.calls)
}

func TestRunManager_ScheduleRejectsBadExpression(t *testing.T) {
	m := NewRunManager(&stubExecutor{}, zaptest.NewLogger(t))
	err := m.Schedule(context.Background(), "every tuesday")
	assert.Error(t, err)
}

func TestRunManager_StartRunsInBackground(t *testing.T) {
	exec := &stubExecutor{started: make(chan struct{}), release: make(chan struct{})}
	m := NewRunManager(exec, zaptest.NewLogger(t))

	require.NoError(t, m.Start(context.Background(), RunOptions{Pages: 2}))
	<-exec.started
	assert.ErrorIs(t, m.Start(context.Background(), RunOptions{}), ErrRunInProgress)
	_, err := m.Trigger(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(exec.release)
	m.Wait()
	require.NotNil(t, m.Latest())
	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, RunOptions{Pages: 2}, exec.opts[0])
}
