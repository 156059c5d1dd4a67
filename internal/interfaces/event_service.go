package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventRunStarted is published when a run passes validation and the remote call is issued
	// Payload: map[string]interface{} {run_id, checked_tests, progress, endpoint, trigger}
	EventRunStarted EventType = "run_started"

	// EventRunProgress is advisory download progress for the current run
	// Payload: map[string]interface{} {run_id, progress}
	EventRunProgress EventType = "run_progress"

	// EventRunSucceeded is published when the remote call resolves with a result set
	// Payload: map[string]interface{} {run_id, statistics, result_count, duration_ms}
	EventRunSucceeded EventType = "run_succeeded"

	// EventRunFailed is published when the remote call rejects. error is the raw error text.
	// Payload: map[string]interface{} {run_id, error}
	EventRunFailed EventType = "run_failed"

	// EventRunRejected is published when validation fails and no call is made
	// Payload: map[string]interface{} {message, fields}
	EventRunRejected EventType = "run_rejected"

	// EventSelectionChanged is published after any selection tree operation
	// Payload: map[string]interface{} {operation, checked_tests, all_selected}
	EventSelectionChanged EventType = "selection_changed"

	// EventAuthCommitted is published when the auth form passes validation
	// Payload: map[string]interface{} {endpoint, mode}
	EventAuthCommitted EventType = "auth_committed"
)

// AllEventTypes lists every event the dashboard stream forwards
var AllEventTypes = []EventType{
	EventRunStarted,
	EventRunProgress,
	EventRunSucceeded,
	EventRunFailed,
	EventRunRejected,
	EventSelectionChanged,
	EventAuthCommitted,
}

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe from an event type
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
