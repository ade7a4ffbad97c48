package models

import "time"

// RunStatus is the status of a batch run as stamped on each table.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// RunSummary is one batch-run record attached to a table. Every table
// selected for a run is stamped with an identical summary (shared RunID)
// before processing begins; the summary reaches a terminal status only
// after all tables in the run finish.
type RunSummary struct {
	RunID        string    `json:"runId"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"startedAt"`
	SampleRows   int       `json:"sampleRows"`
	RuleVersion  string    `json:"ruleVersion"`
	ModelVersion string    `json:"modelVersion"`
	QueueInfo    string    `json:"queueInfo,omitempty"`
	EstimateTime string    `json:"estimateTime,omitempty"`
}

// RunOutcome classifies one table's result within a batch run.
type RunOutcome string

const (
	RunOutcomeSuccess RunOutcome = "success" // high confidence, no issues
	RunOutcomePartial RunOutcome = "partial" // some fields failed to resolve
	RunOutcomeFailed  RunOutcome = "failed"  // could not analyze
)

// TableRunResult is the per-table detail entry of a batch run.
type TableRunResult struct {
	TableName string     `json:"tableName"`
	Outcome   RunOutcome `json:"outcome"`
	Score     float64    `json:"score"`
	Reason    string     `json:"reason,omitempty"`
}

// BatchSummary is the terminal summary of a whole batch run. The run as a
// whole never "fails": it always reaches this summary with per-table
// outcomes, and Success+Partial+Failed == Total.
type BatchSummary struct {
	RunID      string           `json:"runId"`
	Total      int              `json:"total"`
	Success    int              `json:"success"`
	Partial    int              `json:"partial"`
	Failed     int              `json:"failed"`
	Details    []TableRunResult `json:"details"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
}
