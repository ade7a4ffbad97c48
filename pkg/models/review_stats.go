package models

// ReviewStats holds aggregate review counters for one table. Derived, never
// persisted independent of recomputation; absent (nil) while the table is
// at governance stage S0.
type ReviewStats struct {
	PendingReviewFields int `json:"pendingReviewFields"`
	GateFailedItems     int `json:"gateFailedItems"`
	RiskItems           int `json:"riskItems"`
}

// Clean returns true when nothing requires human attention.
func (s ReviewStats) Clean() bool {
	return s.PendingReviewFields == 0 && s.GateFailedItems == 0 && s.RiskItems == 0
}
