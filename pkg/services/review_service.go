package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/models"
)

// FieldDecision is a human decision on one field's suggested semantics.
type FieldDecision string

const (
	DecisionAccept FieldDecision = "accept"
	DecisionModify FieldDecision = "modify"
	DecisionReject FieldDecision = "reject"
)

// ReviewService records human field decisions and review confirmations.
// Every operation is a whole-record replacement through the table store;
// decisions are visible to the stats aggregator immediately.
type ReviewService interface {
	// RecordDecision transitions a field's semantic status: accept/modify
	// move it to DECIDED (modify also replaces the role), reject moves it
	// to BLOCKED. The field profile is initialized lazily from rule
	// inference when the field was never viewed before.
	RecordDecision(tableName, fieldName string, decision FieldDecision, role models.SemanticRole, reason string) (*models.Table, error)

	// ConfirmField marks a field's review status confirmed.
	ConfirmField(tableName, fieldName string) (*models.Table, error)
}

type reviewService struct {
	store      TableStore
	analyzer   FieldAnalyzer
	aggregator ReviewStatsAggregator
	resolver   GovernanceStatusResolver
	audit      *AuditTrail
	logger     *zap.Logger
}

// NewReviewService creates the review service. The audit trail is optional.
func NewReviewService(
	store TableStore,
	analyzer FieldAnalyzer,
	aggregator ReviewStatsAggregator,
	resolver GovernanceStatusResolver,
	audit *AuditTrail,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		store:      store,
		analyzer:   analyzer,
		aggregator: aggregator,
		resolver:   resolver,
		audit:      audit,
		logger:     logger.Named("review"),
	}
}

func (s *reviewService) RecordDecision(tableName, fieldName string, decision FieldDecision, role models.SemanticRole, reason string) (*models.Table, error) {
	updated, err := s.store.Update(tableName, func(prev *models.Table) *models.Table {
		fp := s.ensureFieldProfile(prev, fieldName)
		if fp == nil {
			return nil // unknown field, keep previous record
		}

		switch decision {
		case DecisionAccept:
			fp.SemanticStatus = models.FieldStatusDecided
		case DecisionModify:
			if role.IsValid() {
				fp.Role = role
				fp.RoleConfidence = 100
			}
			fp.SemanticStatus = models.FieldStatusDecided
		case DecisionReject:
			fp.SemanticStatus = models.FieldStatusBlocked
		default:
			return nil
		}

		s.refresh(prev)
		return prev
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}

	if s.audit != nil {
		action := models.AuditActionAccept
		if decision == DecisionReject {
			action = models.AuditActionPending
		}
		s.audit.Record(fieldName, action, "manual", reason)
	}

	s.logger.Info("field decision recorded",
		zap.String("table", tableName),
		zap.String("field", fieldName),
		zap.String("decision", string(decision)))
	return updated, nil
}

func (s *reviewService) ConfirmField(tableName, fieldName string) (*models.Table, error) {
	updated, err := s.store.Update(tableName, func(prev *models.Table) *models.Table {
		fp := s.ensureFieldProfile(prev, fieldName)
		if fp == nil {
			return nil
		}
		fp.ReviewStatus = models.ReviewStatusConfirmed
		s.refresh(prev)
		return prev
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm field: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(fieldName, models.AuditActionConfirm, "manual", "review status confirmed")
	}
	return updated, nil
}

// ensureFieldProfile returns the table's judgment for the field,
// initializing the profile from rule inference when the table was never
// analyzed. Seeding covers every field of the table, not just the one being
// decided, so decided counts are always judged against the full field set.
// Returns nil for fields the table does not have.
func (s *reviewService) ensureFieldProfile(table *models.Table, fieldName string) *models.FieldSemanticProfile {
	if table.Field(fieldName) == nil {
		return nil
	}

	if table.SemanticAnalysis == nil {
		table.SemanticAnalysis = &models.SemanticProfile{
			TableName:        table.Name,
			AnalysisStep:     models.AnalysisStepIdle,
			GovernanceStatus: models.GovernanceS1,
		}
	}
	profile := table.SemanticAnalysis

	for _, field := range table.Fields {
		if profile.FieldProfile(field.Name) != nil {
			continue
		}
		analysis := s.analyzer.Analyze(field)
		status := models.FieldStatusSuggested
		if analysis.RuleMatched {
			status = models.FieldStatusRuleMatched
		}
		profile.Fields = append(profile.Fields, models.FieldSemanticProfile{
			FieldName:      field.Name,
			Role:           analysis.Role,
			RoleConfidence: analysis.RoleConfidence,
			Sensitivity:    analysis.Sensitivity,
			SemanticStatus: status,
			ReviewStatus:   models.ReviewStatusPending,
		})
	}
	return profile.FieldProfile(fieldName)
}

// refresh recomputes the derived state after a decision: stats first, then
// the resolved governance stage.
func (s *reviewService) refresh(table *models.Table) {
	stats := s.aggregator.BuildReviewStats(table, table.SemanticAnalysis)
	table.ReviewStats = stats
	if table.SemanticAnalysis != nil {
		table.SemanticAnalysis.ReviewStats = stats
	}
	table.GovernanceStatus = s.resolver.Resolve(table)
	if table.SemanticAnalysis != nil {
		table.SemanticAnalysis.GovernanceStatus = table.GovernanceStatus
	}
}
