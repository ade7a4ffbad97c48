package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/governance-engine/pkg/models"
)

func TestDetectConflicts(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := analyzed(t, ordersTable())
	conflicts := resolver.DetectConflicts(profile)

	// The only disagreement the mock suggester produces is pay_time:
	// rule table says EventHint, model says Time.
	require.Len(t, conflicts, 1)
	assert.Equal(t, "pay_time", conflicts[0].FieldName)
	assert.Equal(t, models.RoleEventHint, conflicts[0].RuleRole)
	assert.True(t, conflicts[0].AIRole.Equal(models.RoleTime))

	assert.Nil(t, resolver.DetectConflicts(nil))
}

func TestUnknownSuggestionNeverConflicts(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := &models.SemanticProfile{
		Fields: []models.FieldSemanticProfile{
			{FieldName: "remark", Role: models.RoleAttribute, AISuggestion: models.AIRoleUnknown},
			{FieldName: "notes", Role: models.RoleAttribute, AISuggestion: ""},
		},
	}
	assert.Empty(t, resolver.DetectConflicts(profile))
}

func TestResolveRecordsOverride(t *testing.T) {
	audit := NewAuditTrail(testLogger())
	resolver := NewConflictResolver(audit, testLogger())

	profile := analyzed(t, ordersTable())

	require.True(t, resolver.Resolve(profile, "pay_time", models.OverrideSourceAI))

	fp := profile.FieldProfile("pay_time")
	require.NotNil(t, fp.Override)
	assert.True(t, fp.Override.Role.Equal(models.RoleTime))
	assert.Equal(t, models.OverrideSourceAI, fp.Override.Source)
	assert.True(t, fp.EffectiveRole().Equal(models.RoleTime))

	// Resolved fields leave the conflict set.
	assert.Empty(t, resolver.DetectConflicts(profile))

	entries := audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "pay_time", entries[0].Field)
	assert.Equal(t, models.AuditActionOverride, entries[0].Action)
}

func TestResolveKeepsRuleRole(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := analyzed(t, ordersTable())
	require.True(t, resolver.Resolve(profile, "pay_time", models.OverrideSourceRule))

	fp := profile.FieldProfile("pay_time")
	require.NotNil(t, fp.Override)
	assert.Equal(t, models.RoleEventHint, fp.Override.Role)
	assert.Equal(t, models.OverrideSourceRule, fp.Override.Source)
}

func TestResolveIsIdempotent(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := analyzed(t, ordersTable())
	require.True(t, resolver.Resolve(profile, "pay_time", models.OverrideSourceAI))
	recorded := *profile.FieldProfile("pay_time").Override

	// A second resolution is a no-op and leaves the first choice intact.
	assert.False(t, resolver.Resolve(profile, "pay_time", models.OverrideSourceRule))
	assert.Equal(t, recorded, *profile.FieldProfile("pay_time").Override)
}

func TestResolveNonConflictedFieldIsNoop(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := analyzed(t, ordersTable())
	assert.False(t, resolver.Resolve(profile, "order_status", models.OverrideSourceAI))
	assert.Nil(t, profile.FieldProfile("order_status").Override)

	assert.False(t, resolver.Resolve(profile, "no_such_field", models.OverrideSourceAI))
	assert.False(t, resolver.Resolve(profile, "pay_time", models.OverrideSource("bogus")))
	assert.False(t, resolver.Resolve(nil, "pay_time", models.OverrideSourceAI))
}

func TestResolveAll(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := &models.SemanticProfile{
		Fields: []models.FieldSemanticProfile{
			{FieldName: "pay_time", Role: models.RoleEventHint, AISuggestion: string(models.RoleTime)},
			{FieldName: "sign_time", Role: models.RoleEventHint, AISuggestion: string(models.RoleTime)},
			{FieldName: "order_status", Role: models.RoleStatus, AISuggestion: string(models.RoleStatus)},
		},
	}

	assert.Equal(t, 2, resolver.ResolveAll(profile, models.OverrideSourceAI))
	assert.Empty(t, resolver.DetectConflicts(profile))
	// Re-running resolves nothing further.
	assert.Equal(t, 0, resolver.ResolveAll(profile, models.OverrideSourceAI))
}

func TestClearOverride(t *testing.T) {
	resolver := NewConflictResolver(nil, testLogger())

	profile := analyzed(t, ordersTable())
	require.True(t, resolver.Resolve(profile, "pay_time", models.OverrideSourceAI))

	require.True(t, resolver.ClearOverride(profile, "pay_time"))
	assert.Nil(t, profile.FieldProfile("pay_time").Override)
	// The conflict surfaces again once the override is gone.
	assert.Len(t, resolver.DetectConflicts(profile), 1)

	assert.False(t, resolver.ClearOverride(profile, "pay_time"))
	assert.False(t, resolver.ClearOverride(profile, "no_such_field"))
}
