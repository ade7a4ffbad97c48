package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/governance-engine/pkg/apperrors"
	"github.com/datakite/governance-engine/pkg/models"
)

func newTestReviewService(store TableStore, audit *AuditTrail) ReviewService {
	return NewReviewService(
		store,
		NewFieldAnalyzer(nil),
		newTestAggregator(),
		NewGovernanceStatusResolver(),
		audit,
		testLogger(),
	)
}

func analyzedOrdersStore(t *testing.T) TableStore {
	t.Helper()
	table := ordersTable()
	table.SemanticAnalysis = analyzed(t, table)
	return NewInMemoryTableStore([]*models.Table{table})
}

func TestRecordDecisionAccept(t *testing.T) {
	store := analyzedOrdersStore(t)
	svc := newTestReviewService(store, nil)

	updated, err := svc.RecordDecision("t_orders", "user_id", DecisionAccept, "", "looks right")
	require.NoError(t, err)

	fp := updated.SemanticAnalysis.FieldProfile("user_id")
	require.NotNil(t, fp)
	assert.Equal(t, models.FieldStatusDecided, fp.SemanticStatus)
	assert.Equal(t, models.RoleIdentifier, fp.Role, "accept keeps the suggested role")

	// One decision moves the table into active review.
	assert.Equal(t, models.GovernanceS2, updated.GovernanceStatus)
	assert.Equal(t, models.GovernanceS2, updated.SemanticAnalysis.GovernanceStatus)
	require.NotNil(t, updated.ReviewStats)
}

func TestRecordDecisionModifyReplacesRole(t *testing.T) {
	store := analyzedOrdersStore(t)
	svc := newTestReviewService(store, nil)

	updated, err := svc.RecordDecision("t_orders", "pay_time", DecisionModify, models.RoleTime, "plain timestamp")
	require.NoError(t, err)

	fp := updated.SemanticAnalysis.FieldProfile("pay_time")
	require.NotNil(t, fp)
	assert.Equal(t, models.FieldStatusDecided, fp.SemanticStatus)
	assert.Equal(t, models.RoleTime, fp.Role)
	assert.Equal(t, 100, fp.RoleConfidence)
}

func TestRecordDecisionModifyInvalidRoleKeepsSuggestion(t *testing.T) {
	store := analyzedOrdersStore(t)
	svc := newTestReviewService(store, nil)

	updated, err := svc.RecordDecision("t_orders", "pay_time", DecisionModify, "Bogus", "")
	require.NoError(t, err)

	fp := updated.SemanticAnalysis.FieldProfile("pay_time")
	assert.Equal(t, models.FieldStatusDecided, fp.SemanticStatus)
	assert.Equal(t, models.RoleEventHint, fp.Role, "invalid role must not overwrite the suggestion")
}

func TestRecordDecisionReject(t *testing.T) {
	store := analyzedOrdersStore(t)
	svc := newTestReviewService(store, nil)

	updated, err := svc.RecordDecision("t_orders", "customer_phone", DecisionReject, "", "needs schema change")
	require.NoError(t, err)

	fp := updated.SemanticAnalysis.FieldProfile("customer_phone")
	assert.Equal(t, models.FieldStatusBlocked, fp.SemanticStatus)
}

func TestRecordDecisionLazyProfileInit(t *testing.T) {
	// Never analyzed: the first decision seeds the whole field set from
	// rule inference, then applies the decision to its field.
	table := ordersTable()
	store := NewInMemoryTableStore([]*models.Table{table})
	svc := newTestReviewService(store, nil)

	updated, err := svc.RecordDecision("t_orders", "user_id", DecisionAccept, "", "")
	require.NoError(t, err)

	require.NotNil(t, updated.SemanticAnalysis)
	require.Len(t, updated.SemanticAnalysis.Fields, len(table.Fields))
	fp := updated.SemanticAnalysis.FieldProfile("user_id")
	require.NotNil(t, fp)
	assert.Equal(t, models.RoleIdentifier, fp.Role)
	assert.Equal(t, 95, fp.RoleConfidence)
	assert.Equal(t, models.FieldStatusDecided, fp.SemanticStatus)

	// The remaining fields carry their rule inference, untouched.
	other := updated.SemanticAnalysis.FieldProfile("order_status")
	require.NotNil(t, other)
	assert.Equal(t, models.RoleStatus, other.Role)
	assert.Equal(t, models.FieldStatusRuleMatched, other.SemanticStatus)

	// One decision on a freshly seeded profile is one of eight, never
	// "all decided".
	assert.Equal(t, 1, updated.SemanticAnalysis.DecidedCount())
	assert.False(t, updated.SemanticAnalysis.AllDecided())
	assert.Equal(t, models.GovernanceS2, updated.GovernanceStatus)
}

func TestRecordDecisionUnknownField(t *testing.T) {
	store := NewInMemoryTableStore([]*models.Table{ordersTable()})
	svc := newTestReviewService(store, nil)

	updated, err := svc.RecordDecision("t_orders", "no_such_column", DecisionAccept, "", "")
	require.NoError(t, err)
	assert.Nil(t, updated.SemanticAnalysis, "unknown field must leave the record untouched")
}

func TestRecordDecisionUnknownTable(t *testing.T) {
	svc := newTestReviewService(NewInMemoryTableStore(nil), nil)

	_, err := svc.RecordDecision("t_missing", "id", DecisionAccept, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTableNotFound)
}

func TestConfirmField(t *testing.T) {
	store := analyzedOrdersStore(t)
	svc := newTestReviewService(store, nil)

	updated, err := svc.ConfirmField("t_orders", "customer_phone")
	require.NoError(t, err)

	fp := updated.SemanticAnalysis.FieldProfile("customer_phone")
	require.NotNil(t, fp)
	assert.Equal(t, models.ReviewStatusConfirmed, fp.ReviewStatus)

	// Confirming the only low-confidence suggestion drops it from the
	// pending count; the conflicted pay_time remains.
	require.NotNil(t, updated.ReviewStats)
	assert.Equal(t, 1, updated.ReviewStats.PendingReviewFields)
	assert.Equal(t, 0, updated.ReviewStats.RiskItems)
}

func TestReviewNeverDemotesPromotedTable(t *testing.T) {
	table := promotableTable()
	table.SemanticAnalysis = analyzed(t, table)
	store := NewInMemoryTableStore([]*models.Table{table})
	svc := newTestReviewService(store, nil)

	// Confirm the marked primary key; the other fields stay undecided.
	_, err := svc.ConfirmField("t_orders", "id")
	require.NoError(t, err)

	current, ok := store.Get("t_orders")
	require.True(t, ok)
	_, promoted, err := newTestPromotionChecker().Promote(current, nil)
	require.NoError(t, err)
	assert.Equal(t, models.GovernanceS3, promoted.GovernanceStatus)
	store.Replace(promoted)

	// Review activity after promotion must not move the stage backward.
	updated, err := svc.ConfirmField("t_orders", "user_id")
	require.NoError(t, err)
	assert.Equal(t, models.GovernanceS3, updated.GovernanceStatus)

	updated, err = svc.RecordDecision("t_orders", "order_status", DecisionAccept, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.GovernanceS3, updated.GovernanceStatus)
	assert.Equal(t, models.GovernanceS3, updated.SemanticAnalysis.GovernanceStatus)
}

func TestReviewAuditTrail(t *testing.T) {
	store := analyzedOrdersStore(t)
	audit := NewAuditTrail(testLogger())
	svc := newTestReviewService(store, audit)

	_, err := svc.RecordDecision("t_orders", "user_id", DecisionAccept, "", "ok")
	require.NoError(t, err)
	_, err = svc.RecordDecision("t_orders", "customer_phone", DecisionReject, "", "blocked on pii review")
	require.NoError(t, err)
	_, err = svc.ConfirmField("t_orders", "order_status")
	require.NoError(t, err)

	entries := audit.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, models.AuditActionAccept, entries[0].Action)
	assert.Equal(t, "user_id", entries[0].Field)
	assert.Equal(t, "manual", entries[0].Source)
	assert.Equal(t, models.AuditActionPending, entries[1].Action)
	assert.Equal(t, "blocked on pii review", entries[1].Reason)
	assert.Equal(t, models.AuditActionConfirm, entries[2].Action)
}
