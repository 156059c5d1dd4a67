package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
)

func newTestRunStorage(t *testing.T) interfaces.RunStorage {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunStorage(db, logger)
}

func TestRunStorage_SaveAndGet(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()

	started := time.Now().Add(-2 * time.Second).UTC()
	run := &models.RunRecord{
		ID:         "run_1",
		State:      models.RunStateSucceeded,
		Trigger:    "manual",
		Endpoint:   "https://scim.local",
		Mode:       models.AuthModeBasic,
		Operations: []string{"GetUsers", "PostGroup"},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Statistics: &models.RunStatistics{Total: 1, Success: 1, Time: 800},
		Results: []models.TestResult{
			{Name: "GET /Users", Status: models.TestStatusSuccess, ElapsedTime: 800,
				Wire: models.WireLog{RequestType: "GET", Tests: "Status code\nStatus : Success"}},
		},
	}
	require.NoError(t, storage.SaveRun(ctx, run))

	got, err := storage.GetRun(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, run.Endpoint, got.Endpoint)
	assert.Equal(t, run.Operations, got.Operations)
	assert.Equal(t, *run.Statistics, *got.Statistics)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "GET", got.Results[0].Wire.RequestType)
	assert.Equal(t, time.Second, got.Duration())

	// upsert replaces
	run.State = models.RunStateFailed
	run.Error = "Request failed with status code 500"
	require.NoError(t, storage.SaveRun(ctx, run))
	got, err = storage.GetRun(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStateFailed, got.State)
	assert.Equal(t, run.Error, got.Error)
}

func TestRunStorage_Errors(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()

	assert.Error(t, storage.SaveRun(ctx, &models.RunRecord{}))

	_, err := storage.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrRunNotFound)

	assert.ErrorIs(t, storage.DeleteRun(ctx, "missing"), interfaces.ErrRunNotFound)
}

func TestRunStorage_ListNewestFirst(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"run_a", "run_b", "run_c"} {
		require.NoError(t, storage.SaveRun(ctx, &models.RunRecord{
			ID:        id,
			State:     models.RunStateSucceeded,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run_c", runs[0].ID)
	assert.Equal(t, "run_b", runs[1].ID)
	assert.Equal(t, "run_a", runs[2].ID)

	limited, err := storage.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run_c", limited[0].ID)
}

func TestRunStorage_DeleteAndClear(t *testing.T) {
	storage := newTestRunStorage(t)
	ctx := context.Background()

	for _, id := range []string{"run_a", "run_b"} {
		require.NoError(t, storage.SaveRun(ctx, &models.RunRecord{ID: id, StartedAt: time.Now()}))
	}

	require.NoError(t, storage.DeleteRun(ctx, "run_a"))
	runs, err := storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run_b", runs[0].ID)

	require.NoError(t, storage.Clear(ctx))
	runs, err = storage.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewManager_InMemory(t *testing.T) {
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer manager.Close()

	assert.NotNil(t, manager.RunStorage())
	assert.NotNil(t, manager.DB())
}

func TestNewBadgerDB_OnDisk(t *testing.T) {
	dir := t.TempDir()
	logger := arbor.NewLogger()

	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: dir + "/runs"})
	require.NoError(t, err)

	storage := NewRunStorage(db, logger)
	require.NoError(t, storage.SaveRun(context.Background(), &models.RunRecord{ID: "run_disk", StartedAt: time.Now()}))
	require.NoError(t, db.Close())

	reopened, err := NewBadgerDB(logger, &common.BadgerConfig{Path: dir + "/runs"})
	require.NoError(t, err)
	defer reopened.Close()

	_, err = NewRunStorage(reopened, logger).GetRun(context.Background(), "run_disk")
	assert.NoError(t, err)
}
