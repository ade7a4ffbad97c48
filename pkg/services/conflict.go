package services

import (
	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/models"
)

// Conflict is one field whose rule-derived and AI-derived role suggestions
// disagree and no override has been recorded yet.
type Conflict struct {
	FieldName string              `json:"fieldName"`
	RuleRole  models.SemanticRole `json:"ruleRole"`
	AIRole    models.SemanticRole `json:"aiRole"`
}

// ConflictResolver reconciles rule-derived vs AI-derived role suggestions.
// Resolution is a pure recording operation: once an override is stored for a
// field, the field is no longer counted as in conflict anywhere in the
// system until the override is explicitly cleared.
type ConflictResolver interface {
	// DetectConflicts returns the current conflict set of a profile.
	DetectConflicts(profile *models.SemanticProfile) []Conflict

	// Resolve records the user's choice for one field. Resolving a field
	// with no detected conflict is an idempotent no-op, not an error.
	// Returns true if an override was recorded.
	Resolve(profile *models.SemanticProfile, fieldName string, choice models.OverrideSource) bool

	// ResolveAll applies one global choice to every currently-conflicting
	// field, defined as the pointwise map of Resolve over the conflict set.
	// Returns the number of overrides recorded.
	ResolveAll(profile *models.SemanticProfile, choice models.OverrideSource) int

	// ClearOverride removes a recorded override so the field can surface as
	// a conflict again. Returns true if an override was removed.
	ClearOverride(profile *models.SemanticProfile, fieldName string) bool
}

type conflictResolver struct {
	audit  *AuditTrail
	logger *zap.Logger
}

// NewConflictResolver creates a conflict resolver. The audit trail is
// optional; when present every recorded override is logged to it.
func NewConflictResolver(audit *AuditTrail, logger *zap.Logger) ConflictResolver {
	return &conflictResolver{
		audit:  audit,
		logger: logger.Named("conflict"),
	}
}

// fieldInConflict reports whether a per-field judgment carries an unresolved
// rule-vs-AI disagreement. Roles compare case-insensitively and an AI
// suggestion of "unknown" never conflicts.
func fieldInConflict(fp models.FieldSemanticProfile) bool {
	if fp.Override != nil {
		return false
	}
	if fp.AISuggestion == "" {
		return false
	}
	ai := models.SemanticRole(fp.AISuggestion)
	if ai.Equal(models.SemanticRole(models.AIRoleUnknown)) {
		return false
	}
	return !fp.Role.Equal(ai)
}

func (r *conflictResolver) DetectConflicts(profile *models.SemanticProfile) []Conflict {
	if profile == nil {
		return nil
	}
	var conflicts []Conflict
	for _, fp := range profile.Fields {
		if fieldInConflict(fp) {
			conflicts = append(conflicts, Conflict{
				FieldName: fp.FieldName,
				RuleRole:  fp.Role,
				AIRole:    models.SemanticRole(fp.AISuggestion),
			})
		}
	}
	return conflicts
}

func (r *conflictResolver) Resolve(profile *models.SemanticProfile, fieldName string, choice models.OverrideSource) bool {
	if profile == nil || !choice.IsValid() {
		return false
	}
	fp := profile.FieldProfile(fieldName)
	if fp == nil || !fieldInConflict(*fp) {
		// Redundant resolution is side-effect-free.
		return false
	}

	chosen := fp.Role
	if choice == models.OverrideSourceAI {
		chosen = models.SemanticRole(fp.AISuggestion)
	}
	fp.Override = &models.RoleOverride{Role: chosen, Source: choice}

	r.logger.Info("conflict resolved",
		zap.String("table", profile.TableName),
		zap.String("field", fieldName),
		zap.String("choice", string(choice)),
		zap.String("role", string(chosen)))

	if r.audit != nil {
		r.audit.Record(fieldName, models.AuditActionOverride, string(choice),
			"role conflict resolved in favor of "+string(choice)+" suggestion")
	}
	return true
}

func (r *conflictResolver) ResolveAll(profile *models.SemanticProfile, choice models.OverrideSource) int {
	resolved := 0
	for _, c := range r.DetectConflicts(profile) {
		if r.Resolve(profile, c.FieldName, choice) {
			resolved++
		}
	}
	return resolved
}

func (r *conflictResolver) ClearOverride(profile *models.SemanticProfile, fieldName string) bool {
	fp := profile.FieldProfile(fieldName)
	if fp == nil || fp.Override == nil {
		return false
	}
	fp.Override = nil
	if r.audit != nil {
		r.audit.Record(fieldName, models.AuditActionPending, "engine", "role override cleared")
	}
	return true
}
