package selection

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
)

// Operation names reported in selection_changed events
const (
	OpToggleGroup  = "toggle_group"
	OpToggleChild  = "toggle_child"
	OpToggleExpand = "toggle_expand"
	OpSelectAll    = "select_all"
	OpReset        = "reset"
)

// Service owns the current selection tree. Each operation swaps in a new immutable tree.
type Service struct {
	mu      sync.RWMutex
	tree    models.SelectionTree
	catalog func() models.SelectionTree

	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService starts from the default catalog with nothing selected
func NewService(eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		tree:         models.NewDefaultSelectionTree(),
		catalog:      models.NewDefaultSelectionTree,
		eventService: eventService,
		logger:       logger,
	}
}

// Tree returns the current tree. The value is immutable and safe to keep.
func (s *Service) Tree() models.SelectionTree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

func (s *Service) ToggleGroup(ctx context.Context, id int) (models.SelectionTree, error) {
	return s.apply(ctx, OpToggleGroup, func(t models.SelectionTree) (models.SelectionTree, error) {
		return t.ToggleGroup(id)
	})
}

func (s *Service) ToggleChild(ctx context.Context, id, childIndex int) (models.SelectionTree, error) {
	return s.apply(ctx, OpToggleChild, func(t models.SelectionTree) (models.SelectionTree, error) {
		return t.ToggleChild(id, childIndex)
	})
}

func (s *Service) ToggleExpand(ctx context.Context, id int) (models.SelectionTree, error) {
	return s.apply(ctx, OpToggleExpand, func(t models.SelectionTree) (models.SelectionTree, error) {
		return t.ToggleExpand(id)
	})
}

func (s *Service) SelectAll(ctx context.Context) models.SelectionTree {
	tree, _ := s.apply(ctx, OpSelectAll, func(t models.SelectionTree) (models.SelectionTree, error) {
		return t.SelectAll(), nil
	})
	return tree
}

// Reset restores the catalog with nothing selected
func (s *Service) Reset(ctx context.Context) models.SelectionTree {
	tree, _ := s.apply(ctx, OpReset, func(models.SelectionTree) (models.SelectionTree, error) {
		return s.catalog(), nil
	})
	return tree
}

func (s *Service) apply(ctx context.Context, op string, fn func(models.SelectionTree) (models.SelectionTree, error)) (models.SelectionTree, error) {
	s.mu.Lock()
	next, err := fn(s.tree)
	if err != nil {
		current := s.tree
		s.mu.Unlock()
		return current, err
	}
	s.tree = next
	s.mu.Unlock()

	s.logger.Debug().
		Str("operation", op).
		Int("checked_tests", next.CheckedCount()).
		Msg("Selection changed")

	if s.eventService != nil {
		event := interfaces.Event{
			Type: interfaces.EventSelectionChanged,
			Payload: map[string]interface{}{
				"operation":     op,
				"checked_tests": next.CheckedCount(),
				"all_selected":  next.AllSelected(),
			},
		}
		if err := s.eventService.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish selection changed event")
		}
	}

	return next, nil
}
