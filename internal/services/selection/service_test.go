package selection

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/events"
)

func TestService_Operations(t *testing.T) {
	logger := arbor.NewLogger()
	svc := NewService(nil, logger)
	ctx := context.Background()

	tree, err := svc.ToggleGroup(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, tree.CheckedCount())
	assert.Equal(t, 7, svc.Tree().CheckedCount())

	_, err = svc.ToggleChild(ctx, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, svc.Tree().CheckedCount())

	_, err = svc.ToggleExpand(ctx, 1)
	require.NoError(t, err)
	g, _ := svc.Tree().Group(1)
	assert.True(t, g.Expanded)

	all := svc.SelectAll(ctx)
	assert.True(t, all.AllSelected())

	reset := svc.Reset(ctx)
	assert.Equal(t, 0, reset.CheckedCount())
	assert.Equal(t, models.NewDefaultSelectionTree().Groups(), svc.Tree().Groups())
}

func TestService_ErrorKeepsTree(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	ctx := context.Background()

	_, err := svc.ToggleGroup(ctx, 2)
	require.NoError(t, err)

	tree, err := svc.ToggleGroup(ctx, 42)
	assert.ErrorIs(t, err, models.ErrGroupNotFound)
	assert.Equal(t, 1, tree.CheckedCount())
	assert.Equal(t, 1, svc.Tree().CheckedCount())
}

func TestService_PublishesSelectionChanged(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	defer eventService.Close()

	received := make(chan map[string]interface{}, 1)
	require.NoError(t, eventService.Subscribe(interfaces.EventSelectionChanged, func(ctx context.Context, e interfaces.Event) error {
		received <- e.Payload.(map[string]interface{})
		return nil
	}))

	svc := NewService(eventService, logger)
	svc.SelectAll(context.Background())

	payload := <-received
	assert.Equal(t, OpSelectAll, payload["operation"])
	assert.Equal(t, 33, payload["checked_tests"])
	assert.Equal(t, true, payload["all_selected"])
}

func TestService_ConcurrentToggles(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.ToggleChild(ctx, 5, i%7)
		}(i)
	}
	wg.Wait()

	assert.True(t, svc.Tree().Consistent())
}
