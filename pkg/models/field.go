package models

import "strings"

// FieldKeyPK is the marker value placed in Field.Key for primary key columns.
const FieldKeyPK = "PK"

// Field represents one column within a scanned table.
// Name is the join key used everywhere (role overrides, sensitivity
// overrides, review status, selection sets) and must be stable and non-empty.
type Field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Comment    string `json:"comment,omitempty"`
	Key        string `json:"key,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
	Required   bool   `json:"required,omitempty"`
}

// IsPrimaryKey returns true if the field carries an explicit PK marker.
func (f Field) IsPrimaryKey() bool {
	return f.PrimaryKey || strings.EqualFold(f.Key, FieldKeyPK)
}

// SemanticRole classifies the business meaning of a field.
type SemanticRole string

const (
	RoleIdentifier SemanticRole = "Identifier"
	RoleForeignKey SemanticRole = "ForeignKey"
	RoleStatus     SemanticRole = "Status"
	RoleTime       SemanticRole = "Time"
	RoleMeasure    SemanticRole = "Measure"
	RoleAttribute  SemanticRole = "Attribute"
	RoleAudit      SemanticRole = "Audit"
	RoleTechnical  SemanticRole = "Technical"
	RoleBusAttr    SemanticRole = "BusAttr"
	RoleEventHint  SemanticRole = "EventHint"
)

// ValidSemanticRoles contains all valid role values.
var ValidSemanticRoles = []SemanticRole{
	RoleIdentifier,
	RoleForeignKey,
	RoleStatus,
	RoleTime,
	RoleMeasure,
	RoleAttribute,
	RoleAudit,
	RoleTechnical,
	RoleBusAttr,
	RoleEventHint,
}

// IsValid checks if the role is one of the defined values.
func (r SemanticRole) IsValid() bool {
	for _, v := range ValidSemanticRoles {
		if v == r {
			return true
		}
	}
	return false
}

// Equal compares roles case-insensitively. Conflict detection treats
// suggestions from different sources as equal regardless of casing.
func (r SemanticRole) Equal(other SemanticRole) bool {
	return strings.EqualFold(string(r), string(other))
}

// SensitivityLevel is the data-privacy classification of a field, from
// public (L1) to highly sensitive (L4).
type SensitivityLevel string

const (
	SensitivityL1 SensitivityLevel = "L1"
	SensitivityL2 SensitivityLevel = "L2"
	SensitivityL3 SensitivityLevel = "L3"
	SensitivityL4 SensitivityLevel = "L4"
)

// Sensitive returns true for levels that require human confirmation (L3/L4).
func (l SensitivityLevel) Sensitive() bool {
	return l == SensitivityL3 || l == SensitivityL4
}

// FieldSemanticStatus tracks the review state of a per-field judgment.
// State machine:
//
//	SUGGESTED | RULE_MATCHED → DECIDED (accept/modify)
//	SUGGESTED | RULE_MATCHED → BLOCKED (reject)
//
// No further transitions without a new human decision.
type FieldSemanticStatus string

const (
	FieldStatusSuggested   FieldSemanticStatus = "SUGGESTED"
	FieldStatusRuleMatched FieldSemanticStatus = "RULE_MATCHED"
	FieldStatusDecided     FieldSemanticStatus = "DECIDED"
	FieldStatusBlocked     FieldSemanticStatus = "BLOCKED"
)

// Decided returns true once a human has rendered a decision on the field.
func (s FieldSemanticStatus) Decided() bool {
	return s == FieldStatusDecided || s == FieldStatusBlocked
}

// ReviewStatus is the review state of a single field within the
// promotion checklist (distinct from the semantic status transition).
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusConfirmed ReviewStatus = "confirmed"
)

// OverrideSource identifies which suggestion source a conflict was
// resolved in favor of.
type OverrideSource string

const (
	OverrideSourceRule OverrideSource = "rule"
	OverrideSourceAI   OverrideSource = "ai"
)

// IsValid checks if the source is one of the defined values.
func (s OverrideSource) IsValid() bool {
	return s == OverrideSourceRule || s == OverrideSourceAI
}

// RoleOverride records a user's resolution of a rule-vs-AI role conflict.
// Once recorded, the field is no longer counted as "in conflict" anywhere
// until the override is explicitly cleared.
type RoleOverride struct {
	Role   SemanticRole   `json:"role"`
	Source OverrideSource `json:"source"`
}

// FieldSemanticProfile is the per-field judgment within a SemanticProfile.
type FieldSemanticProfile struct {
	FieldName      string               `json:"fieldName"`
	Role           SemanticRole         `json:"role"`
	RoleConfidence int                  `json:"roleConfidence"` // 0-100
	Sensitivity    SensitivityLevel     `json:"sensitivity"`
	AISuggestion   string               `json:"aiSuggestion,omitempty"`
	Tags           []string             `json:"tags,omitempty"`
	SemanticStatus FieldSemanticStatus  `json:"semanticStatus"`
	ReviewStatus   ReviewStatus         `json:"reviewStatus,omitempty"`
	Override       *RoleOverride        `json:"override,omitempty"`
	Metrics        *FieldProfileMetrics `json:"metrics,omitempty"` // set when a profiling backend exists
}

// Confirmed returns true if the field no longer needs human attention:
// either a review confirmation, a semantic decision, or a conflict override
// has been recorded.
func (p FieldSemanticProfile) Confirmed() bool {
	return p.ReviewStatus == ReviewStatusConfirmed ||
		p.SemanticStatus.Decided() ||
		p.Override != nil
}

// EffectiveRole returns the override role when one is recorded, otherwise
// the suggested role.
func (p FieldSemanticProfile) EffectiveRole() SemanticRole {
	if p.Override != nil {
		return p.Override.Role
	}
	return p.Role
}
