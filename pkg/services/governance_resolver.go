package services

import (
	"github.com/datakite/governance-engine/pkg/models"
)

// GovernanceStatusResolver maps a table's persisted governance data to its
// lifecycle stage. It is the single place that computes the stage: every
// other component consumes the resolved value, never recomputes it.
//
// Deterministic function of persisted data only; it never consults UI-local
// transient state.
type GovernanceStatusResolver interface {
	// Resolve computes the lifecycle stage from the table record.
	Resolve(table *models.Table) models.GovernanceStatus

	// DisplayLabel returns the stage label the UI should show, which can
	// differ from the enum when an accepted upgrade on this table has been
	// rolled back. The underlying enum value is never altered by this.
	DisplayLabel(table *models.Table, history []models.UpgradeHistoryEntry) string
}

type governanceStatusResolver struct{}

// NewGovernanceStatusResolver creates the stage resolver.
func NewGovernanceStatusResolver() GovernanceStatusResolver {
	return &governanceStatusResolver{}
}

func (r *governanceStatusResolver) Resolve(table *models.Table) models.GovernanceStatus {
	if table == nil {
		return models.GovernanceS0
	}

	// A persisted S3 marker records that the table-level promotion was
	// executed. The stage only moves backward through an upgrade rollback,
	// which restores an earlier snapshot; review activity never demotes.
	if table.GovernanceStatus == models.GovernanceS3 {
		return models.GovernanceS3
	}

	profile := table.SemanticAnalysis
	if profile == nil {
		// A persisted governance marker without a profile still counts as
		// analyzed (the profile may live in the caller's store).
		if table.GovernanceStatus.Analyzed() {
			return table.GovernanceStatus
		}
		return models.GovernanceS0
	}

	if profile.DecidedCount() == 0 {
		return models.GovernanceS1
	}
	// Decisions exist but the promotion (or "finish") action has not been
	// invoked: under review, even when every field is decided.
	return models.GovernanceS2
}

// Stage labels shown by the display layer.
var governanceLabels = map[models.GovernanceStatus]string{
	models.GovernanceS0: "Not analyzed",
	models.GovernanceS1: "Suggestions generated",
	models.GovernanceS2: "Under review",
	models.GovernanceS3: "Confirmed",
}

func (r *governanceStatusResolver) DisplayLabel(table *models.Table, history []models.UpgradeHistoryEntry) string {
	status := r.Resolve(table)
	label := governanceLabels[status]

	if table != nil {
		for _, entry := range history {
			if entry.TableName == table.Name && entry.RolledBack {
				return label + " (upgrade rolled back)"
			}
		}
	}
	return label
}
