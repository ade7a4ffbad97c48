package services

import (
	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/models"
)

// Role confidence below this requires human review for sensitive fields.
const reviewConfidenceThreshold = 70

// ReviewStatsAggregator aggregates per-table review, gate, and risk counts
// from a field set. Stats are derived, never persisted independently, and
// absent while the table is still at governance stage S0.
type ReviewStatsAggregator interface {
	// BuildReviewStats recomputes the counters for a table. Returns nil
	// when no analysis has been persisted yet (stage S0). Idempotent:
	// unchanged inputs produce identical counts.
	BuildReviewStats(table *models.Table, profile *models.SemanticProfile) *models.ReviewStats
}

type reviewStatsAggregator struct {
	analyzer FieldAnalyzer
	gate     GateEvaluator
	logger   *zap.Logger
}

// NewReviewStatsAggregator creates a review stats aggregator composing the
// field analyzer and the gate evaluator.
func NewReviewStatsAggregator(analyzer FieldAnalyzer, gate GateEvaluator, logger *zap.Logger) ReviewStatsAggregator {
	return &reviewStatsAggregator{
		analyzer: analyzer,
		gate:     gate,
		logger:   logger.Named("review-stats"),
	}
}

func (a *reviewStatsAggregator) BuildReviewStats(table *models.Table, profile *models.SemanticProfile) *models.ReviewStats {
	if table == nil {
		return nil
	}
	if profile == nil {
		profile = table.SemanticAnalysis
	}
	// No stats before first analysis.
	if profile == nil && !table.GovernanceStatus.Analyzed() {
		return nil
	}

	stats := &models.ReviewStats{}

	for _, field := range table.Fields {
		analysis := a.analyzer.Analyze(field)

		var fp models.FieldSemanticProfile
		if p := profile.FieldProfile(field.Name); p != nil {
			fp = *p
		} else {
			// Field never viewed: only its rule inference exists.
			fp = models.FieldSemanticProfile{
				FieldName:      field.Name,
				Role:           analysis.Role,
				RoleConfidence: analysis.RoleConfidence,
				Sensitivity:    analysis.Sensitivity,
			}
		}

		confirmed := fp.Confirmed()
		lowConfidenceSensitive := analysis.Sensitivity.Sensitive() &&
			fp.RoleConfidence < reviewConfidenceThreshold

		if !confirmed && (lowConfidenceSensitive || fieldInConflict(fp)) {
			stats.PendingReviewFields++
		}
		if analysis.Sensitivity.Sensitive() && !confirmed {
			stats.RiskItems++
		}
	}

	// Gate failures are composed from the evaluator's reasons, never
	// re-derived independently.
	gateResult := a.gate.Check(table)
	stats.GateFailedItems = len(gateResult.Reasons)

	return stats
}
