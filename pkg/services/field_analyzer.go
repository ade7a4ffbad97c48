package services

import (
	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/rules"
)

// Default classification applied when no rule matches.
const (
	defaultRole       = models.RoleAttribute
	defaultConfidence = 60
	defaultReason     = "no naming pattern matched; treated as business attribute"
)

// FieldAnalysis is the result of classifying a single field.
type FieldAnalysis struct {
	Role           models.SemanticRole     `json:"role"`
	RoleConfidence int                     `json:"roleConfidence"` // 0-100
	Sensitivity    models.SensitivityLevel `json:"sensitivity"`
	Reason         string                  `json:"reason"`
	RuleMatched    bool                    `json:"ruleMatched"`
}

// FieldAnalyzer classifies one field's semantic role, sensitivity level, and
// rule confidence from its name, type, and comment. Pure and deterministic:
// callable with only the field record, no table-level context.
type FieldAnalyzer interface {
	Analyze(field models.Field) FieldAnalysis
}

type fieldAnalyzer struct {
	rules *rules.RuleSet
}

// NewFieldAnalyzer creates a field analyzer over the given rule set.
// A nil rule set selects the compiled-in defaults.
func NewFieldAnalyzer(ruleSet *rules.RuleSet) FieldAnalyzer {
	if ruleSet == nil {
		ruleSet = rules.Default()
	}
	return &fieldAnalyzer{rules: ruleSet}
}

func (a *fieldAnalyzer) Analyze(field models.Field) FieldAnalysis {
	analysis := FieldAnalysis{
		Role:           defaultRole,
		RoleConfidence: defaultConfidence,
		Reason:         defaultReason,
		Sensitivity:    a.rules.MatchSensitivity(field.Name),
	}

	// An explicit PK marker outranks every naming rule.
	if field.IsPrimaryKey() {
		analysis.Role = models.RoleIdentifier
		analysis.RoleConfidence = 95
		analysis.Reason = "explicit primary key marker"
		analysis.RuleMatched = true
		return analysis
	}

	if rule := a.rules.MatchRole(field.Name, field.Type); rule != nil {
		analysis.Role = rule.Role
		analysis.RoleConfidence = rule.Confidence
		analysis.Reason = rule.Reason
		analysis.RuleMatched = true
	}
	return analysis
}
