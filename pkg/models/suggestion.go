package models

// AIRoleUnknown is the suggestion value an AI source returns when it cannot
// classify a field. Unknown suggestions never count as conflicts.
const AIRoleUnknown = "unknown"

// RoleSuggestion is one AI-derived role suggestion for a field.
type RoleSuggestion struct {
	Role       SemanticRole `json:"role"`
	Suggestion string       `json:"suggestion,omitempty"`
	Confidence int          `json:"confidence"` // 0-100
}

// FieldProfileMetrics are data-quality measurements produced by a
// DataProfiler collaborator. All rates are in [0, 1].
type FieldProfileMetrics struct {
	NullRate          float64 `json:"nullRate"`
	Uniqueness        float64 `json:"uniqueness"`
	FormatConsistency float64 `json:"formatConsistency"`
}
