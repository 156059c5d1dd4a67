package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/runner"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, trigger string) (*models.RunRecord, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	err := f.err
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if errors.Is(err, runner.ErrRunInProgress) {
		return nil, err
	}
	record := &models.RunRecord{ID: "run_" + string(rune('0'+n)), Trigger: trigger, State: models.RunStateSucceeded}
	if err != nil {
		record.State = models.RunStateFailed
		record.Error = err.Error()
	}
	return record, err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTriggerNow(t *testing.T) {
	runs := &fakeRunner{}
	svc := NewService(runs, arbor.NewLogger())

	require.NoError(t, svc.TriggerNow())

	status := svc.Status()
	assert.Equal(t, "run_1", status.LastRunID)
	assert.NotNil(t, status.LastRun)
	assert.Empty(t, status.LastError)
	assert.False(t, status.Enabled)
}

func TestTriggerNow_RecordsFailure(t *testing.T) {
	runs := &fakeRunner{err: errors.New("compliance run failed: Network Error")}
	svc := NewService(runs, arbor.NewLogger())

	assert.Error(t, svc.TriggerNow())
	assert.Equal(t, "compliance run failed: Network Error", svc.Status().LastError)
}

func TestTriggerNow_BusyControllerIsSkipped(t *testing.T) {
	runs := &fakeRunner{err: runner.ErrRunInProgress}
	svc := NewService(runs, arbor.NewLogger())

	assert.ErrorIs(t, svc.TriggerNow(), runner.ErrRunInProgress)
	status := svc.Status()
	assert.Equal(t, 1, status.Skipped)
	assert.Nil(t, status.LastRun)
}

func TestTick_OverlapIsSkipped(t *testing.T) {
	runs := &fakeRunner{block: make(chan struct{})}
	svc := NewService(runs, arbor.NewLogger())

	done := make(chan error, 1)
	go func() { done <- svc.TriggerNow() }()
	require.Eventually(t, func() bool { return runs.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, svc.TriggerNow(), runner.ErrRunInProgress)
	close(runs.block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, runs.callCount())
	assert.Equal(t, 1, svc.Status().Skipped)
}

func TestStartStop(t *testing.T) {
	runs := &fakeRunner{}
	svc := NewService(runs, arbor.NewLogger())

	assert.Error(t, svc.Start("not a schedule"))
	assert.False(t, svc.IsRunning())

	require.NoError(t, svc.Start("@every 50ms"))
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start("@every 50ms"))

	status := svc.Status()
	assert.Equal(t, "@every 50ms", status.Schedule)
	assert.NotNil(t, status.NextRun)

	require.Eventually(t, func() bool { return runs.callCount() > 0 }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
	require.NoError(t, svc.Stop())
}
