package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/apperrors"
	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/services/workqueue"
)

// RunHandle tracks one batch run. A run cannot be cancelled outright — only
// sent to background, where it keeps processing detached from any view;
// that is a product decision, not a technical limitation.
type RunHandle struct {
	runID     string
	startedAt time.Time
	queue     *workqueue.Queue

	mu         sync.Mutex
	results    []models.TableRunResult
	summary    *models.BatchSummary
	background bool

	done chan struct{}
}

// RunID returns the shared run identifier stamped on every selected table.
func (h *RunHandle) RunID() string {
	return h.runID
}

// Progress returns the queue progress (pending/running/completed counts).
func (h *RunHandle) Progress() workqueue.Progress {
	return h.queue.Progress()
}

// SendToBackground detaches the run from its view. Processing continues.
func (h *RunHandle) SendToBackground() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.background = true
}

// InBackground reports whether the run was detached.
func (h *RunHandle) InBackground() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.background
}

// Summary returns the terminal batch summary, or nil while running.
func (h *RunHandle) Summary() *models.BatchSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summary
}

// Wait blocks until the run reaches its terminal summary or ctx expires.
// A cancelled ctx stops the wait, never the run itself.
func (h *RunHandle) Wait(ctx context.Context) (*models.BatchSummary, error) {
	select {
	case <-h.done:
		return h.Summary(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *RunHandle) recordResult(result models.TableRunResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
}

// BatchRunCoordinator schedules per-table analyses under a concurrency
// bound and produces an aggregate run summary. State machine per run:
// CONFIGURING → RUNNING → {COMPLETED, BACKGROUNDED}; BACKGROUNDED is not
// terminal, the run continues until COMPLETED.
type BatchRunCoordinator interface {
	// StartRun stamps every selected table with an identical RunSummary
	// (shared run id) before processing begins, then analyzes tables with
	// at most cfg.Concurrency in flight, remainder queued FIFO. A table
	// already part of a running batch is rejected with ErrRunInProgress.
	StartRun(ctx context.Context, tableNames []string, cfg config.BatchConfig) (*RunHandle, error)

	// ActiveRun returns the handle of the run currently holding a table,
	// or nil when the table is idle.
	ActiveRun(tableName string) *RunHandle
}

type batchRunCoordinator struct {
	store      TableStore
	analysis   AnalysisService
	resolver   GovernanceStatusResolver
	thresholds config.OutcomeThresholds
	logger     *zap.Logger

	mu      sync.Mutex
	running map[string]*RunHandle // table name -> holding run
}

// NewBatchRunCoordinator creates the batch coordinator.
func NewBatchRunCoordinator(
	store TableStore,
	analysis AnalysisService,
	resolver GovernanceStatusResolver,
	thresholds config.OutcomeThresholds,
	logger *zap.Logger,
) BatchRunCoordinator {
	return &batchRunCoordinator{
		store:      store,
		analysis:   analysis,
		resolver:   resolver,
		thresholds: thresholds.WithDefaults(),
		logger:     logger.Named("batch"),
		running:    make(map[string]*RunHandle),
	}
}

func (c *batchRunCoordinator) ActiveRun(tableName string) *RunHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[tableName]
}

func (c *batchRunCoordinator) StartRun(ctx context.Context, tableNames []string, cfg config.BatchConfig) (*RunHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tableNames) == 0 {
		return nil, fmt.Errorf("no tables selected for batch run")
	}
	cfg = cfg.WithDefaults()
	tableNames = dedupeNames(tableNames)

	// CONFIGURING: validate the selection before touching any table.
	for _, name := range tableNames {
		if _, ok := c.store.Get(name); !ok {
			return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrTableNotFound)
		}
	}

	handle := &RunHandle{
		runID:     uuid.New().String(),
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	handle.queue = workqueue.New(c.logger,
		workqueue.WithStrategy(workqueue.NewBoundedStrategy(cfg.Concurrency)),
		// Analysis failures are recorded per table, never retried blindly.
		workqueue.WithRetryConfig(workqueue.RetryConfig{MaxRetries: 0}),
	)

	// Serialize per table: claim every table or start nothing.
	c.mu.Lock()
	for _, name := range tableNames {
		if holder := c.running[name]; holder != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrRunInProgress)
		}
	}
	for _, name := range tableNames {
		c.running[name] = handle
	}
	c.mu.Unlock()

	// Optimistic stamp: every table carries the shared summary before any
	// processing starts.
	stamp := models.RunSummary{
		RunID:        handle.runID,
		Status:       models.RunStatusRunning,
		StartedAt:    handle.startedAt,
		SampleRows:   cfg.SampleRows,
		RuleVersion:  cfg.RuleVersion,
		ModelVersion: cfg.ModelVersion,
		QueueInfo:    cfg.Queue,
		EstimateTime: estimateRunTime(len(tableNames), cfg.Concurrency),
	}
	for _, name := range tableNames {
		summary := stamp
		if _, err := c.store.Update(name, func(prev *models.Table) *models.Table {
			prev.LastRun = &summary
			prev.Status = models.TableStatusPending
			return prev
		}); err != nil {
			c.logger.Warn("failed to stamp run summary",
				zap.String("table", name),
				zap.Error(err))
		}
	}

	c.logger.Info("batch run started",
		zap.String("run_id", handle.runID),
		zap.Int("tables", len(tableNames)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("queue", cfg.Queue))

	for _, name := range tableNames {
		handle.queue.Enqueue(&analyzeTableTask{
			BaseTask:    workqueue.NewBaseTask("analyze " + name),
			coordinator: c,
			handle:      handle,
			tableName:   name,
			assist:      config.AssistConfig{MaxRows: cfg.SampleRows},
		})
	}

	// RUNNING: finalization happens off the caller's goroutine; the run
	// outlives the ctx that started it.
	go c.finalizeRun(handle, tableNames)

	return handle, nil
}

// finalizeRun waits for all tasks, writes terminal run state to each table,
// and publishes the batch summary.
func (c *batchRunCoordinator) finalizeRun(handle *RunHandle, tableNames []string) {
	_ = handle.queue.Wait(context.Background())

	handle.mu.Lock()
	results := append([]models.TableRunResult(nil), handle.results...)
	handle.mu.Unlock()

	resultByTable := make(map[string]models.TableRunResult, len(results))
	for _, r := range results {
		resultByTable[r.TableName] = r
	}

	summary := &models.BatchSummary{
		RunID:      handle.runID,
		Total:      len(tableNames),
		StartedAt:  handle.startedAt,
		FinishedAt: time.Now(),
	}

	for _, name := range tableNames {
		result, ok := resultByTable[name]
		if !ok {
			// A table with no recorded result never finished analysis.
			result = models.TableRunResult{
				TableName: name,
				Outcome:   models.RunOutcomeFailed,
				Reason:    "analysis did not complete",
			}
		}
		summary.Details = append(summary.Details, result)

		switch result.Outcome {
		case models.RunOutcomeSuccess:
			summary.Success++
		case models.RunOutcomePartial:
			summary.Partial++
		default:
			summary.Failed++
		}

		runStatus := models.RunStatusDone
		if result.Outcome == models.RunOutcomeFailed {
			runStatus = models.RunStatusFailed
		}
		if _, err := c.store.Update(name, func(prev *models.Table) *models.Table {
			if prev.LastRun != nil && prev.LastRun.RunID == handle.runID {
				lr := *prev.LastRun
				lr.Status = runStatus
				prev.LastRun = &lr
			}
			return prev
		}); err != nil {
			c.logger.Warn("failed to finalize run status",
				zap.String("table", name),
				zap.Error(err))
		}
	}

	c.mu.Lock()
	for _, name := range tableNames {
		if c.running[name] == handle {
			delete(c.running, name)
		}
	}
	c.mu.Unlock()

	handle.mu.Lock()
	handle.summary = summary
	handle.mu.Unlock()
	close(handle.done)

	c.logger.Info("batch run complete",
		zap.String("run_id", handle.runID),
		zap.Int("success", summary.Success),
		zap.Int("partial", summary.Partial),
		zap.Int("failed", summary.Failed))
}

// classifyOutcome maps a completed analysis to its run outcome using the
// configured thresholds.
func (c *batchRunCoordinator) classifyOutcome(profile *models.SemanticProfile) models.RunOutcome {
	pending := 0
	if profile.ReviewStats != nil {
		pending = profile.ReviewStats.PendingReviewFields
	}
	switch {
	case profile.FinalScore >= c.thresholds.Success && pending == 0:
		return models.RunOutcomeSuccess
	case profile.FinalScore >= c.thresholds.Partial:
		return models.RunOutcomePartial
	default:
		// Confidence too low to treat any of the field resolutions as
		// usable.
		return models.RunOutcomeFailed
	}
}

// analyzeTableTask analyzes one table within a batch run.
type analyzeTableTask struct {
	workqueue.BaseTask
	coordinator *batchRunCoordinator
	handle      *RunHandle
	tableName   string
	assist      config.AssistConfig
}

// Execute always returns nil: a single table's failure is recorded in its
// detail entry and must not abort the batch.
func (t *analyzeTableTask) Execute(ctx context.Context, _ workqueue.TaskEnqueuer) error {
	c := t.coordinator

	table, ok := c.store.Get(t.tableName)
	if !ok {
		t.handle.recordResult(models.TableRunResult{
			TableName: t.tableName,
			Outcome:   models.RunOutcomeFailed,
			Reason:    "table disappeared from the collection",
		})
		return nil
	}

	// Mark the table as actively analyzing.
	_, _ = c.store.Update(t.tableName, func(prev *models.Table) *models.Table {
		prev.Status = models.TableStatusPendingReview
		return prev
	})

	profile, err := c.analysis.Analyze(ctx, table, AnalyzeOptions{Assist: t.assist})
	if err != nil {
		c.logger.Warn("table analysis failed within batch",
			zap.String("run_id", t.handle.runID),
			zap.String("table", t.tableName),
			zap.Error(err))
		t.handle.recordResult(models.TableRunResult{
			TableName: t.tableName,
			Outcome:   models.RunOutcomeFailed,
			Reason:    err.Error(),
		})
		return nil
	}

	outcome := c.classifyOutcome(profile)

	updated, err := c.store.Update(t.tableName, func(prev *models.Table) *models.Table {
		prev.SemanticAnalysis = profile
		prev.ReviewStats = profile.ReviewStats
		prev.Status = models.TableStatusAnalyzed
		prev.GovernanceStatus = c.resolver.Resolve(prev)
		return prev
	})
	if err != nil {
		t.handle.recordResult(models.TableRunResult{
			TableName: t.tableName,
			Outcome:   models.RunOutcomeFailed,
			Reason:    err.Error(),
		})
		return nil
	}

	result := models.TableRunResult{
		TableName: t.tableName,
		Outcome:   outcome,
		Score:     profile.FinalScore,
	}
	if outcome == models.RunOutcomeFailed {
		result.Reason = "confidence below the partial-success threshold"
	}
	t.handle.recordResult(result)

	c.logger.Info("table analyzed in batch",
		zap.String("run_id", t.handle.runID),
		zap.String("table", updated.Name),
		zap.String("outcome", string(outcome)),
		zap.Float64("score", profile.FinalScore))
	return nil
}

// dedupeNames drops repeated selections, keeping first-seen order, so one
// run never claims or analyzes the same table twice.
func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	unique := names[:0:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return unique
}

// estimateRunTime is a coarse duration estimate shown in run summaries.
func estimateRunTime(tables, concurrency int) string {
	if concurrency < 1 {
		concurrency = 1
	}
	waves := (tables + concurrency - 1) / concurrency
	return (time.Duration(waves) * 30 * time.Second).String()
}
