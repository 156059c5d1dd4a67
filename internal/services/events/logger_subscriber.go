package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		var runID, operation, errText string
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["run_id"].(string); ok {
				runID = id
			}
			if op, ok := payload["operation"].(string); ok {
				operation = op
			}
			if e, ok := payload["error"].(string); ok {
				errText = e
			}
		}

		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if runID != "" {
			logEvent = logEvent.Str("run_id", runID)
		}
		if operation != "" {
			logEvent = logEvent.Str("operation", operation)
		}
		if errText != "" {
			logEvent = logEvent.Str("error", errText)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range interfaces.AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(interfaces.AllEventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
