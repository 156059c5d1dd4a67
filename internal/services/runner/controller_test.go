package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/events"
	"github.com/ternarybob/scimdash/internal/storage/badger"
)

type staticSelection struct {
	tree models.SelectionTree
}

func (s *staticSelection) Tree() models.SelectionTree { return s.tree }

type staticAuth struct {
	cfg       models.AuthConfig
	committed bool
}

func (a *staticAuth) Committed() (models.AuthConfig, bool) { return a.cfg, a.committed }

// fakeClient blocks each call until a reply is pushed
type fakeClient struct {
	mu       sync.Mutex
	calls    int
	requests []*models.RunRequest
	progress []interfaces.ProgressFunc
	entered  chan struct{}
	replies  chan reply
}

type reply struct {
	resp  *models.RunResponse
	err   error
	panic bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		entered: make(chan struct{}, 10),
		replies: make(chan reply, 10),
	}
}

func (f *fakeClient) Execute(ctx context.Context, req *models.RunRequest, onProgress interfaces.ProgressFunc) (*models.RunResponse, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.progress = append(f.progress, onProgress)
	f.mu.Unlock()

	f.entered <- struct{}{}
	r := <-f.replies
	if r.panic {
		panic("transport bug")
	}
	return r.resp, r.err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) lastProgress() interfaces.ProgressFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress[len(f.progress)-1]
}

func sampleResponse() *models.RunResponse {
	return &models.RunResponse{
		Statistics: models.RunStatistics{Total: 2, Success: 1, Failed: 1, Time: 420},
		Results: []models.TestResult{
			{Name: "GET /Users", Status: models.TestStatusSuccess, Wire: models.WireLog{
				Tests: "Status code\nActual : 200\nExpected : 200\nStatus : Success\n",
			}},
			{Name: "POST /Groups", Status: models.TestStatusFailed, Message: "caused by: 409"},
		},
	}
}

type fixture struct {
	controller *Controller
	client     *fakeClient
	selection  *staticSelection
	auth       *staticAuth
	store      interfaces.RunStorage
	events     interfaces.EventService

	mu       sync.Mutex
	received []interfaces.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := arbor.NewLogger()

	tree := models.NewDefaultSelectionTree()
	tree, err := tree.ToggleChild(4, 0)
	require.NoError(t, err)
	tree, err = tree.ToggleChild(5, 2)
	require.NoError(t, err)

	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	f := &fixture{
		client:    newFakeClient(),
		selection: &staticSelection{tree: tree},
		auth: &staticAuth{committed: true, cfg: models.AuthConfig{
			Endpoint: "https://scim.local", Mode: models.AuthModeBasic, UserName: "admin", Password: "admin",
		}},
		store:  badger.NewRunStorage(db, logger),
		events: eventService,
	}

	for _, et := range interfaces.AllEventTypes {
		require.NoError(t, eventService.Subscribe(et, func(ctx context.Context, e interfaces.Event) error {
			f.mu.Lock()
			f.received = append(f.received, e)
			f.mu.Unlock()
			return nil
		}))
	}

	f.controller = NewController(f.selection, f.auth, f.client, f.store, eventService, logger)
	return f
}

func (f *fixture) eventTypes() []interfaces.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interfaces.EventType, len(f.received))
	for i, e := range f.received {
		out[i] = e.Type
	}
	return out
}

func (f *fixture) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-f.client.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("remote call was not issued")
	}
}

func (f *fixture) waitResolved(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.controller.Wait(ctx))
}

func TestController_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	runID, err := f.controller.Start(ctx, TriggerManual)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	f.waitEntered(t)

	snap := f.controller.Snapshot()
	assert.Equal(t, models.RunStateRunning, snap.State)
	require.NotNil(t, snap.Progress)
	assert.Equal(t, 2, *snap.Progress)
	assert.Nil(t, snap.Statistics)

	f.client.replies <- reply{resp: sampleResponse()}
	f.waitResolved(t)

	snap = f.controller.Snapshot()
	assert.Equal(t, models.RunStateSucceeded, snap.State)
	require.NotNil(t, snap.Statistics)
	assert.Equal(t, 2, snap.Statistics.Total)
	assert.Len(t, snap.Results, 2)
	require.NotNil(t, snap.Chart)
	assert.Equal(t, []int{1, 1, 0}, snap.Chart.Values)
	assert.Equal(t, 100, *snap.Progress)
	assert.Equal(t, runID, snap.LastRunID)

	record, err := f.store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateSucceeded, record.State)
	assert.Equal(t, []string{"GetUsers", "PostGroup"}, record.Operations)
	assert.Equal(t, TriggerManual, record.Trigger)

	assert.Equal(t, []interfaces.EventType{interfaces.EventRunStarted, interfaces.EventRunSucceeded}, f.eventTypes())
}

func TestController_RejectsWhileRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.controller.Start(ctx, TriggerManual)
	require.NoError(t, err)
	f.waitEntered(t)

	_, err = f.controller.Start(ctx, TriggerManual)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, models.RunStateRunning, f.controller.State())

	f.client.replies <- reply{resp: sampleResponse()}
	f.waitResolved(t)
	assert.Equal(t, 1, f.client.callCount())
}

func TestController_ValidationFailure(t *testing.T) {
	f := newFixture(t)
	f.auth.cfg.Password = ""

	_, err := f.controller.Start(context.Background(), TriggerManual)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(models.FieldPassword))
	assert.Equal(t, models.RunStateIdle, f.controller.State())
	assert.Equal(t, 0, f.client.callCount())
	assert.Equal(t, []interfaces.EventType{interfaces.EventRunRejected}, f.eventTypes())
}

func TestController_NothingCommitted(t *testing.T) {
	f := newFixture(t)
	f.auth.committed = false
	f.auth.cfg = models.AuthConfig{}

	_, err := f.controller.Start(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.Equal(t, "Please fill all authentication details!", err.Error())
}

func TestController_NoTestsChecked(t *testing.T) {
	f := newFixture(t)
	f.selection.tree = models.NewDefaultSelectionTree()

	_, err := f.controller.Start(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.Equal(t, "Please check at least one test case to proceed!", err.Error())
	assert.True(t, f.controller.Snapshot().CanStart())
}

func TestController_FailureKeepsPriorResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	firstID, err := f.controller.Start(ctx, TriggerManual)
	require.NoError(t, err)
	f.waitEntered(t)
	f.client.replies <- reply{resp: sampleResponse()}
	f.waitResolved(t)
	before := f.controller.Snapshot()

	secondID, err := f.controller.Start(ctx, TriggerManual)
	require.NoError(t, err)
	f.waitEntered(t)

	// hidden while running
	assert.Nil(t, f.controller.Snapshot().Results)
	_, err = f.controller.Result(0)
	assert.ErrorIs(t, err, ErrNoResults)

	f.client.replies <- reply{err: errors.New("Network Error")}
	f.waitResolved(t)

	after := f.controller.Snapshot()
	assert.Equal(t, models.RunStateFailed, after.State)
	assert.Equal(t, "Network Error", after.LastError)
	assert.Nil(t, after.Progress)
	assert.Equal(t, before.Statistics, after.Statistics)
	assert.Equal(t, before.Results, after.Results)
	assert.Equal(t, firstID, after.LastRunID)
	assert.True(t, after.CanStart())

	record, err := f.store.GetRun(ctx, secondID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateFailed, record.State)
	assert.Equal(t, "Network Error", record.Error)
}

func TestController_ProgressIsAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.controller.Start(ctx, TriggerManual)
	require.NoError(t, err)
	f.waitEntered(t)
	onProgress := f.client.lastProgress()

	onProgress(40)
	assert.Equal(t, 40, *f.controller.Snapshot().Progress)

	// never goes backwards
	onProgress(10)
	assert.Equal(t, 40, *f.controller.Snapshot().Progress)

	// reaching 100 does not resolve the run
	onProgress(100)
	assert.Equal(t, models.RunStateRunning, f.controller.State())

	f.client.replies <- reply{err: errors.New("timeout of 0ms exceeded")}
	f.waitResolved(t)

	// late progress after resolution is ignored
	onProgress(100)
	snap := f.controller.Snapshot()
	assert.Equal(t, models.RunStateFailed, snap.State)
	assert.Nil(t, snap.Progress)
}

func TestController_PanicResolvesAsFailed(t *testing.T) {
	f := newFixture(t)

	_, err := f.controller.Start(context.Background(), TriggerManual)
	require.NoError(t, err)
	f.waitEntered(t)
	f.client.replies <- reply{panic: true}
	f.waitResolved(t)

	snap := f.controller.Snapshot()
	assert.Equal(t, models.RunStateFailed, snap.State)
	assert.Contains(t, snap.LastError, "transport bug")
}

func TestController_Run(t *testing.T) {
	f := newFixture(t)
	f.client.replies <- reply{resp: sampleResponse()}

	record, err := f.controller.Run(context.Background(), TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateSucceeded, record.State)
	assert.Equal(t, TriggerSchedule, record.Trigger)

	f.client.replies <- reply{err: errors.New("Request failed with status code 502")}
	record, err = f.controller.Run(context.Background(), TriggerSchedule)
	assert.ErrorIs(t, err, ErrRunFailed)
	require.NotNil(t, record)
	assert.Equal(t, "Request failed with status code 502", record.Error)
}

func TestController_ResultsAndAssertions(t *testing.T) {
	f := newFixture(t)

	_, err := f.controller.Results()
	assert.ErrorIs(t, err, ErrNoResults)

	f.client.replies <- reply{resp: sampleResponse()}
	_, err = f.controller.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	results, err := f.controller.Results()
	require.NoError(t, err)
	assert.Len(t, results, 2)

	records, err := f.controller.Assertions(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Status code", records[0].Name)
	assert.True(t, records[0].Passed())

	_, err = f.controller.Assertions(5)
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestController_CredentialsNotStored(t *testing.T) {
	f := newFixture(t)
	f.client.replies <- reply{resp: sampleResponse()}

	record, err := f.controller.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "https://scim.local", record.Endpoint)
	assert.Equal(t, models.AuthModeBasic, record.Mode)

	f.client.mu.Lock()
	req := f.client.requests[0]
	f.client.mu.Unlock()
	assert.Equal(t, "admin", req.Password())
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, clampPercent(-3))
	assert.Equal(t, 33, clampPercent(33))
	assert.Equal(t, 100, clampPercent(250))
}
