package handlers

import (
	"context"

	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
)

// SelectionManager owns the selection tree
type SelectionManager interface {
	Tree() models.SelectionTree
	ToggleGroup(ctx context.Context, id int) (models.SelectionTree, error)
	ToggleChild(ctx context.Context, id, childIndex int) (models.SelectionTree, error)
	ToggleExpand(ctx context.Context, id int) (models.SelectionTree, error)
	SelectAll(ctx context.Context) models.SelectionTree
	Reset(ctx context.Context) models.SelectionTree
}

// AuthManager owns the auth dialog state
type AuthManager interface {
	SetField(name, value string) error
	Submit(ctx context.Context) error
	State() models.AuthState
}

// RunManager starts runs and exposes their visible state
type RunManager interface {
	Start(ctx context.Context, trigger string) (string, error)
	Snapshot() models.RunSnapshot
	Results() ([]models.TestResult, error)
	Result(i int) (models.TestResult, error)
	Assertions(i int) ([]models.AssertionRecord, error)
}

// SchedulerStatusProvider reports the scheduled run state
type SchedulerStatusProvider interface {
	Status() interfaces.SchedulerStatus
	TriggerNow() error
}
