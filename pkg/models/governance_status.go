package models

// GovernanceStatus represents the lifecycle stage of a table's semantic
// understanding, from unanalyzed (S0) to fully confirmed/promoted (S3).
// State machine:
//
//	S0 → S1 → S2 → S3
//
// Any stage may be forced back to S0 when an accepted upgrade is rolled back.
type GovernanceStatus string

const (
	GovernanceS0 GovernanceStatus = "S0" // not analyzed
	GovernanceS1 GovernanceStatus = "S1" // suggestions generated, unreviewed
	GovernanceS2 GovernanceStatus = "S2" // partially reviewed
	GovernanceS3 GovernanceStatus = "S3" // fully confirmed / promoted
)

// ValidGovernanceStatuses contains all valid status values.
var ValidGovernanceStatuses = []GovernanceStatus{
	GovernanceS0,
	GovernanceS1,
	GovernanceS2,
	GovernanceS3,
}

// IsValid checks if the status is one of the defined stages.
func (s GovernanceStatus) IsValid() bool {
	for _, v := range ValidGovernanceStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Analyzed returns true once any analysis has been persisted for the table.
func (s GovernanceStatus) Analyzed() bool {
	return s.IsValid() && s != GovernanceS0
}

// rank maps stages to their position in the normal forward flow.
func (s GovernanceStatus) rank() int {
	switch s {
	case GovernanceS0:
		return 0
	case GovernanceS1:
		return 1
	case GovernanceS2:
		return 2
	case GovernanceS3:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from this stage to target is valid.
// Normal flow is monotonic (S0→S1→S2→S3); a rollback may force any stage
// back to S0.
func (s GovernanceStatus) CanTransitionTo(target GovernanceStatus) bool {
	if !s.IsValid() || !target.IsValid() {
		return false
	}
	if target == GovernanceS0 {
		return true
	}
	return target.rank() >= s.rank()
}
