package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/runner"
)

// RunTrigger runs a compliance run to completion
type RunTrigger interface {
	Run(ctx context.Context, trigger string) (*models.RunRecord, error)
}

// Service implements SchedulerService interface
type Service struct {
	runs     RunTrigger
	cron     *cron.Cron
	logger   arbor.ILogger
	mu       sync.Mutex // Protects status fields
	globalMu sync.Mutex // Prevents overlapping ticks
	running  bool
	schedule string
	entryID  cron.EntryID
	lastRun  *time.Time
	lastID   string
	lastErr  string
	skipped  int
}

// NewService creates a new scheduler service
func NewService(runs RunTrigger, logger arbor.ILogger) *Service {
	return &Service{
		runs:   runs,
		cron:   cron.New(cron.WithParser(common.CronParser())),
		logger: logger,
	}
}

// Start begins the scheduler with the given cron expression
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(cronExpr); err != nil {
		return err
	}

	id, err := s.cron.AddFunc(cronExpr, s.runScheduledTask)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = id
	s.schedule = cronExpr
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Msg("Compliance run scheduler started")

	return nil
}

// Stop halts the scheduler and waits for a tick in progress to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cron.Remove(s.entryID)
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Compliance run scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow runs one scheduled tick immediately and waits for it
func (s *Service) TriggerNow() error {
	s.logger.Info().Msg("Manual scheduler trigger requested")
	return s.tick()
}

// Status returns the current schedule state
func (s *Service) Status() interfaces.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := interfaces.SchedulerStatus{
		Enabled:   s.running,
		Schedule:  s.schedule,
		LastRunID: s.lastID,
		LastError: s.lastErr,
		Skipped:   s.skipped,
	}
	if s.lastRun != nil {
		t := *s.lastRun
		status.LastRun = &t
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// runScheduledTask is the cron callback
func (s *Service) runScheduledTask() {
	// Panic recovery to prevent service crash
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled compliance run")
		}
	}()

	if err := s.tick(); err != nil && !errors.Is(err, runner.ErrRunInProgress) {
		s.logger.Warn().Err(err).Msg("Scheduled compliance run did not succeed")
	}
}

// tick starts a run unless one is already active. A busy controller is a logged no-op.
func (s *Service) tick() error {
	if !s.globalMu.TryLock() {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Info().Msg("Scheduled run skipped, previous tick still running")
		return runner.ErrRunInProgress
	}
	defer s.globalMu.Unlock()

	record, err := s.runs.Run(context.Background(), runner.TriggerSchedule)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, runner.ErrRunInProgress) {
		s.skipped++
		s.logger.Info().Int("skipped", s.skipped).Msg("Scheduled run skipped, run in progress")
		return err
	}

	now := time.Now()
	s.lastRun = &now
	s.lastErr = ""
	if record != nil {
		s.lastID = record.ID
	}
	if err != nil {
		s.lastErr = err.Error()
		return err
	}

	s.logger.Info().
		Str("run_id", record.ID).
		Str("state", string(record.State)).
		Msg("Scheduled compliance run completed")
	return nil
}
