// Package runner drives a compliance run from validation to resolution.
//
// States: idle -> validating -> running -> succeeded | failed. Only one run is active at a
// time; a trigger while validating or running is rejected with ErrRunInProgress. The terminal
// state is decided solely by the remote call; progress callbacks are advisory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/assertions"
	"github.com/ternarybob/scimdash/internal/services/payload"
)

var (
	// ErrRunInProgress is returned when a run is triggered while another is active
	ErrRunInProgress = errors.New("a compliance run is already in progress")
	// ErrNoResults is returned when no successful run is visible
	ErrNoResults = errors.New("no results available")
	// ErrResultNotFound is returned for an out-of-range result index
	ErrResultNotFound = errors.New("result not found")
	// ErrRunFailed wraps the remote error text of a failed run
	ErrRunFailed = errors.New("compliance run failed")
)

// Run triggers
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// SelectionSource provides the current selection tree
type SelectionSource interface {
	Tree() models.SelectionTree
}

// AuthSource provides the committed auth config
type AuthSource interface {
	Committed() (models.AuthConfig, bool)
}

// Controller is the run state machine
type Controller struct {
	mu        sync.Mutex
	state     models.RunState
	runID     string
	progress  *int
	lastError string

	// last successful run; hidden while a run is in progress
	stats     *models.RunStatistics
	results   []models.TestResult
	lastRunID string

	record *models.RunRecord
	done   chan struct{}

	selection    SelectionSource
	auth         AuthSource
	builder      *payload.Builder
	client       interfaces.ComplianceClient
	store        interfaces.RunStorage
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewController creates an idle controller. store and eventService may be nil.
func NewController(
	selection SelectionSource,
	auth AuthSource,
	client interfaces.ComplianceClient,
	store interfaces.RunStorage,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) *Controller {
	return &Controller{
		state:        models.RunStateIdle,
		selection:    selection,
		auth:         auth,
		builder:      payload.NewBuilder(),
		client:       client,
		store:        store,
		eventService: eventService,
		logger:       logger,
	}
}

// Start validates the current selection and auth config and, if they pass, issues the
// remote call in the background. It returns the new run ID. Validation failures return a
// *models.ValidationError and leave the controller idle.
func (c *Controller) Start(ctx context.Context, trigger string) (string, error) {
	runID, _, err := c.start(ctx, trigger)
	return runID, err
}

func (c *Controller) start(ctx context.Context, trigger string) (string, <-chan struct{}, error) {
	c.mu.Lock()
	if c.state == models.RunStateRunning || c.state == models.RunStateValidating {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug().Str("state", string(state)).Msg("Run trigger ignored, run in progress")
		return "", nil, ErrRunInProgress
	}
	c.state = models.RunStateValidating
	c.mu.Unlock()

	tree := c.selection.Tree()
	auth, _ := c.auth.Committed()

	req, err := c.builder.Build(tree, auth)
	if err != nil {
		c.mu.Lock()
		c.state = models.RunStateIdle
		c.mu.Unlock()

		c.reject(ctx, err)
		return "", nil, err
	}

	checked := tree.CheckedCount()
	progress := clampPercent(checked)
	runID := common.NewRunID()
	record := &models.RunRecord{
		ID:         runID,
		State:      models.RunStateRunning,
		Trigger:    trigger,
		Endpoint:   auth.Endpoint,
		Mode:       auth.Mode,
		Operations: req.EnabledOperations(),
		StartedAt:  time.Now(),
	}
	done := make(chan struct{})

	c.mu.Lock()
	c.state = models.RunStateRunning
	c.runID = runID
	c.progress = &progress
	c.lastError = ""
	c.record = record
	c.done = done
	c.mu.Unlock()

	c.logger.Info().
		Str("run_id", runID).
		Str("state", string(models.RunStateRunning)).
		Int("checked_tests", checked).
		Str("endpoint", auth.Endpoint).
		Str("trigger", trigger).
		Msg("Compliance run started")

	c.saveRecord(ctx, record)
	c.publish(ctx, interfaces.EventRunStarted, map[string]interface{}{
		"run_id":        runID,
		"checked_tests": checked,
		"progress":      progress,
		"endpoint":      auth.Endpoint,
		"trigger":       trigger,
	})

	// The remote call is not cancellable once issued
	runCtx := context.WithoutCancel(ctx)
	common.SafeGoWithRecover(c.logger, "complianceRun", func() {
		resp, err := c.client.Execute(runCtx, req, func(percent int) {
			c.onProgress(runCtx, runID, percent)
		})
		c.resolve(runCtx, runID, resp, err)
	}, func(recovered interface{}) {
		c.resolve(runCtx, runID, nil, fmt.Errorf("compliance run panicked: %v", recovered))
	})

	return runID, done, nil
}

// Run starts a run and waits for it to resolve. A failed run returns its record together
// with an error wrapping ErrRunFailed.
func (c *Controller) Run(ctx context.Context, trigger string) (*models.RunRecord, error) {
	runID, done, err := c.start(ctx, trigger)
	if err != nil {
		return nil, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	record, err := c.recordFor(ctx, runID)
	if err != nil {
		return nil, err
	}
	if record.State == models.RunStateFailed {
		return record, fmt.Errorf("%w: %s", ErrRunFailed, record.Error)
	}
	return record, nil
}

// Wait blocks until the current run resolves or ctx ends. It returns immediately when no
// run is active.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) recordFor(ctx context.Context, runID string) (*models.RunRecord, error) {
	if c.store != nil {
		if record, err := c.store.GetRun(ctx, runID); err == nil {
			return record, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record != nil && c.record.ID == runID {
		copied := *c.record
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: %s", interfaces.ErrRunNotFound, runID)
}

// onProgress advances the indicator for the active run. Late or stale callbacks are dropped.
func (c *Controller) onProgress(ctx context.Context, runID string, percent int) {
	percent = clampPercent(percent)

	c.mu.Lock()
	if c.runID != runID || c.state != models.RunStateRunning {
		c.mu.Unlock()
		return
	}
	if c.progress != nil && percent <= *c.progress {
		c.mu.Unlock()
		return
	}
	c.progress = &percent
	c.mu.Unlock()

	c.publish(ctx, interfaces.EventRunProgress, map[string]interface{}{
		"run_id":   runID,
		"progress": percent,
	})
}

// resolve applies the outcome of the remote call. Only the first resolution of the active
// run has any effect.
func (c *Controller) resolve(ctx context.Context, runID string, resp *models.RunResponse, runErr error) {
	if runErr == nil && resp == nil {
		runErr = errors.New("empty response from compliance suite")
	}

	c.mu.Lock()
	if c.runID != runID || c.state != models.RunStateRunning {
		c.mu.Unlock()
		return
	}

	record := *c.record
	record.FinishedAt = time.Now()

	if runErr != nil {
		c.state = models.RunStateFailed
		c.lastError = runErr.Error()
		c.progress = nil

		record.State = models.RunStateFailed
		record.Error = c.lastError
	} else {
		stats := resp.Statistics
		full := 100
		c.state = models.RunStateSucceeded
		c.stats = &stats
		c.results = resp.Results
		c.lastRunID = runID
		c.progress = &full

		record.State = models.RunStateSucceeded
		record.Statistics = &stats
		record.Results = resp.Results
	}
	c.record = &record
	done := c.done
	c.mu.Unlock()

	c.saveRecord(ctx, &record)

	if runErr != nil {
		c.logger.Warn().
			Str("run_id", runID).
			Str("state", string(record.State)).
			Str("error", record.Error).
			Msg("Compliance run failed")

		c.publish(ctx, interfaces.EventRunFailed, map[string]interface{}{
			"run_id": runID,
			"error":  record.Error,
		})
	} else {
		c.logger.Info().
			Str("run_id", runID).
			Str("state", string(record.State)).
			Int("total", record.Statistics.Total).
			Int("success", record.Statistics.Success).
			Int("failed", record.Statistics.Failed).
			Int("skipped", record.Statistics.Skipped).
			Msg("Compliance run succeeded")

		c.publish(ctx, interfaces.EventRunSucceeded, map[string]interface{}{
			"run_id":       runID,
			"statistics":   *record.Statistics,
			"result_count": len(record.Results),
			"duration_ms":  record.Duration().Milliseconds(),
		})
	}

	close(done)
}

func (c *Controller) reject(ctx context.Context, err error) {
	payloadMap := map[string]interface{}{
		"message": err.Error(),
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		payloadMap["fields"] = verr.Fields.Clone()
		c.logger.Info().
			Strs("fields", verr.Fields.Fields()).
			Str("state", string(models.RunStateIdle)).
			Msg("Compliance run rejected")
	} else {
		c.logger.Warn().Err(err).Msg("Compliance run rejected")
	}

	c.publish(ctx, interfaces.EventRunRejected, payloadMap)
}

func (c *Controller) saveRecord(ctx context.Context, record *models.RunRecord) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		c.logger.Warn().Err(err).Str("run_id", record.ID).Msg("Failed to save run record")
	}
}

// publish delivers synchronously so subscribers see run events in order
func (c *Controller) publish(ctx context.Context, eventType interfaces.EventType, payloadMap map[string]interface{}) {
	if c.eventService == nil {
		return
	}
	event := interfaces.Event{Type: eventType, Payload: payloadMap}
	if err := c.eventService.PublishSync(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish run event")
	}
}

// Snapshot returns the dashboard view of the controller
func (c *Controller) Snapshot() models.RunSnapshot {
	checked := c.selection.Tree().CheckedCount()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.RunSnapshot{
		State:        c.state,
		RunID:        c.runID,
		LastError:    c.lastError,
		LastRunID:    c.lastRunID,
		CheckedTests: checked,
	}
	if c.progress != nil {
		p := *c.progress
		snap.Progress = &p
	}
	if c.state != models.RunStateRunning && c.stats != nil {
		stats := *c.stats
		chart := models.NewSummaryChart(stats)
		snap.Statistics = &stats
		snap.Chart = &chart
		snap.Results = append([]models.TestResult(nil), c.results...)
	}
	return snap
}

// State returns the current state
func (c *Controller) State() models.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Results returns the visible results of the last successful run
func (c *Controller) Results() ([]models.TestResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == models.RunStateRunning || c.stats == nil {
		return nil, ErrNoResults
	}
	return append([]models.TestResult(nil), c.results...), nil
}

// Result returns the visible result at index i
func (c *Controller) Result(i int) (models.TestResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == models.RunStateRunning || c.stats == nil {
		return models.TestResult{}, ErrNoResults
	}
	if i < 0 || i >= len(c.results) {
		return models.TestResult{}, fmt.Errorf("%w: %d", ErrResultNotFound, i)
	}
	return c.results[i], nil
}

// Assertions parses the assertion text of result i. Parsing happens on every call; results
// are only decoded when a detail view asks for them.
func (c *Controller) Assertions(i int) ([]models.AssertionRecord, error) {
	result, err := c.Result(i)
	if err != nil {
		return nil, err
	}
	return assertions.Parse(result.Wire.Tests), nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
