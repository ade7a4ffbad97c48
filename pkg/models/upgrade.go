package models

import (
	"time"

	"github.com/google/uuid"
)

// UpgradeKind identifies the cluster pattern behind an upgrade candidate.
type UpgradeKind string

const (
	UpgradeKindStatus   UpgradeKind = "status"   // status/state/phase/stage field clusters
	UpgradeKindBehavior UpgradeKind = "behavior" // verb-named time fields (pay_time, ...)
)

// UpgradeCandidate is one field proposed for extraction into a sub-object.
type UpgradeCandidate struct {
	FieldName   string      `json:"fieldName"`
	Kind        UpgradeKind `json:"kind"`
	ObjectName  string      `json:"objectName"`
	Description string      `json:"description,omitempty"`
}

// UpgradeSuggestion proposes extracting detected field clusters from a
// table into first-class sub-objects.
type UpgradeSuggestion struct {
	TableName  string             `json:"tableName"`
	Candidates []UpgradeCandidate `json:"candidates"`
}

// UpgradeHistoryEntry records one accepted structural upgrade. Entries are
// retained for audit; rollback is a soft-delete that flips RolledBack.
type UpgradeHistoryEntry struct {
	ID          uuid.UUID        `json:"id"`
	TableName   string           `json:"tableName"`
	BeforeState *SemanticProfile `json:"beforeState"`
	AfterState  *SemanticProfile `json:"afterState"`
	Timestamp   time.Time        `json:"timestamp"`
	RolledBack  bool             `json:"rolledBack"`
}
