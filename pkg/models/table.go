package models

// TableStatus is the scanner-facing status of a table record.
type TableStatus string

const (
	TableStatusScanned       TableStatus = "scanned"
	TableStatusAnalyzed      TableStatus = "analyzed"
	TableStatusPendingReview TableStatus = "pending_review"
	TableStatusPending       TableStatus = "pending"
)

// Table represents one scanned physical table. Records are created by an
// external scanner and mutated by the governance engine only through
// whole-object replacement: analysis completion, field decisions, and
// promotion each produce a new record for the caller to splice back.
type Table struct {
	Name             string           `json:"table"`
	Comment          string           `json:"comment,omitempty"`
	SourceID         string           `json:"sourceId,omitempty"`
	SourceName       string           `json:"sourceName,omitempty"`
	SourceType       string           `json:"sourceType,omitempty"`
	Rows             int64            `json:"rows"`
	Fields           []Field          `json:"fields"`
	Status           TableStatus      `json:"status"`
	GovernanceStatus GovernanceStatus `json:"governanceStatus"`
	SemanticAnalysis *SemanticProfile `json:"semanticAnalysis,omitempty"`
	ReviewStats      *ReviewStats     `json:"reviewStats,omitempty"`
	LastRun          *RunSummary      `json:"lastRun,omitempty"`
}

// Field returns the field with the given name, or nil.
func (t *Table) Field(name string) *Field {
	if t == nil {
		return nil
	}
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the table record.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Fields = append([]Field(nil), t.Fields...)
	cp.SemanticAnalysis = t.SemanticAnalysis.Clone()
	if t.ReviewStats != nil {
		rs := *t.ReviewStats
		cp.ReviewStats = &rs
	}
	if t.LastRun != nil {
		lr := *t.LastRun
		cp.LastRun = &lr
	}
	return &cp
}
