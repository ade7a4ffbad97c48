package models

// GateOutcome is the aggregate result of the gatekeeper policy checks.
type GateOutcome string

const (
	GatePass   GateOutcome = "PASS"
	GateReview GateOutcome = "REVIEW"
	GateReject GateOutcome = "REJECT"
)

// GateDetails holds the per-check booleans of the gatekeeper.
type GateDetails struct {
	PrimaryKey bool `json:"primaryKey"`
	Lifecycle  bool `json:"lifecycle"`
	TableType  bool `json:"tableType"`
}

// GateResult is the outcome of running the gatekeeper checks on a table.
// Reasons lists one human-readable string per failed check; empty on PASS.
type GateResult struct {
	Result  GateOutcome `json:"result"`
	Details GateDetails `json:"details"`
	Reasons []string    `json:"reasons,omitempty"`
}

// FailedChecks returns the number of checks that did not pass.
func (r GateResult) FailedChecks() int {
	n := 0
	if !r.Details.PrimaryKey {
		n++
	}
	if !r.Details.Lifecycle {
		n++
	}
	if !r.Details.TableType {
		n++
	}
	return n
}
