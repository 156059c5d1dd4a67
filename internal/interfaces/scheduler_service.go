package interfaces

import "time"

// SchedulerStatus describes the scheduled compliance run
type SchedulerStatus struct {
	Enabled   bool       `json:"enabled"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRunID string     `json:"last_run_id,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Skipped   int        `json:"skipped"` // ticks ignored because a run was in progress
}

// SchedulerService manages cron-based compliance runs
type SchedulerService interface {
	// Start the scheduler with a cron expression
	Start(cronExpr string) error

	// Stop the scheduler
	Stop() error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// TriggerNow runs the scheduled job immediately
	TriggerNow() error

	// Status returns the current schedule state
	Status() SchedulerStatus
}
