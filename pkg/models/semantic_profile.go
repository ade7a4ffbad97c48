package models

// AnalysisStep tracks where a table's working analysis currently is.
type AnalysisStep string

const (
	AnalysisStepIdle    AnalysisStep = "idle"
	AnalysisStepRunning AnalysisStep = "running"
	AnalysisStepDone    AnalysisStep = "done"
)

// Relationship is one edge from the analyzed table to another table.
// The relationships list supports independent add/edit/delete by the user.
type Relationship struct {
	TargetTable string `json:"targetTable"`
	Type        string `json:"type"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// AIEvidenceItem is one piece of evidence produced by the AI suggestion pass.
type AIEvidenceItem struct {
	Field      string `json:"field"`
	Suggestion string `json:"suggestion"`
	Confidence int    `json:"confidence"` // 0-100
}

// SemanticProfile is the working analysis state for one table. It is owned
// exclusively by the session editing that table and replaced wholesale on
// load/save.
type SemanticProfile struct {
	TableName        string                 `json:"tableName"`
	AnalysisStep     AnalysisStep           `json:"analysisStep"`
	GovernanceStatus GovernanceStatus       `json:"governanceStatus"`
	BusinessName     string                 `json:"businessName,omitempty"`
	BusinessDomain   string                 `json:"businessDomain,omitempty"`
	Description      string                 `json:"description,omitempty"`
	Fields           []FieldSemanticProfile `json:"fields"`
	Relationships    []Relationship         `json:"relationships,omitempty"`
	RuleScore        float64                `json:"ruleScore"` // 0-1
	FinalScore       float64                `json:"finalScore"`
	RuleEvidence     []string               `json:"ruleEvidence,omitempty"`
	AIEvidenceItems  []AIEvidenceItem       `json:"aiEvidenceItems,omitempty"`
	GateResult       *GateResult            `json:"gateResult,omitempty"`
	ReviewStats      *ReviewStats           `json:"reviewStats,omitempty"`
}

// FieldProfile returns the per-field judgment for the named field, or nil.
func (p *SemanticProfile) FieldProfile(name string) *FieldSemanticProfile {
	if p == nil {
		return nil
	}
	for i := range p.Fields {
		if p.Fields[i].FieldName == name {
			return &p.Fields[i]
		}
	}
	return nil
}

// DecidedCount returns how many fields carry a human decision or override.
func (p *SemanticProfile) DecidedCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, f := range p.Fields {
		if f.SemanticStatus.Decided() || f.Override != nil {
			n++
		}
	}
	return n
}

// AllDecided returns true when every field carries a human decision.
func (p *SemanticProfile) AllDecided() bool {
	if p == nil || len(p.Fields) == 0 {
		return false
	}
	return p.DecidedCount() == len(p.Fields)
}

// AddRelationship appends a relationship to the profile.
func (p *SemanticProfile) AddRelationship(r Relationship) {
	p.Relationships = append(p.Relationships, r)
}

// UpdateRelationship replaces the relationship at index i. Out-of-range
// indexes are ignored so stale UI edits cannot corrupt the profile.
func (p *SemanticProfile) UpdateRelationship(i int, r Relationship) bool {
	if i < 0 || i >= len(p.Relationships) {
		return false
	}
	p.Relationships[i] = r
	return true
}

// RemoveRelationship deletes the relationship at index i.
func (p *SemanticProfile) RemoveRelationship(i int) bool {
	if i < 0 || i >= len(p.Relationships) {
		return false
	}
	p.Relationships = append(p.Relationships[:i], p.Relationships[i+1:]...)
	return true
}

// Clone returns a deep copy of the profile. Profiles move between the
// engine and the caller's store by whole-object replacement, so snapshots
// must not share slices with the live object.
func (p *SemanticProfile) Clone() *SemanticProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Fields = make([]FieldSemanticProfile, len(p.Fields))
	copy(cp.Fields, p.Fields)
	for i := range cp.Fields {
		if ov := cp.Fields[i].Override; ov != nil {
			o := *ov
			cp.Fields[i].Override = &o
		}
		if tags := cp.Fields[i].Tags; tags != nil {
			cp.Fields[i].Tags = append([]string(nil), tags...)
		}
		if m := cp.Fields[i].Metrics; m != nil {
			mc := *m
			cp.Fields[i].Metrics = &mc
		}
	}
	cp.Relationships = append([]Relationship(nil), p.Relationships...)
	cp.RuleEvidence = append([]string(nil), p.RuleEvidence...)
	cp.AIEvidenceItems = append([]AIEvidenceItem(nil), p.AIEvidenceItems...)
	if p.GateResult != nil {
		gr := *p.GateResult
		gr.Reasons = append([]string(nil), p.GateResult.Reasons...)
		cp.GateResult = &gr
	}
	if p.ReviewStats != nil {
		rs := *p.ReviewStats
		cp.ReviewStats = &rs
	}
	return &cp
}
