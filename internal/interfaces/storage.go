package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/scimdash/internal/models"
)

// ErrRunNotFound is returned when a run ID is not in the history store
var ErrRunNotFound = errors.New("run not found")

// RunStorage - interface for compliance run history
type RunStorage interface {
	// SaveRun inserts or replaces a run record
	SaveRun(ctx context.Context, run *models.RunRecord) error

	// GetRun returns ErrRunNotFound when the ID is unknown
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)

	// ListRuns returns runs newest first. limit <= 0 returns all runs.
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)

	DeleteRun(ctx context.Context, id string) error

	// Clear removes every run
	Clear(ctx context.Context) error
}

// StorageManager owns the database connection and the storages built on it
type StorageManager interface {
	RunStorage() RunStorage
	DB() interface{}
	Close() error
}
