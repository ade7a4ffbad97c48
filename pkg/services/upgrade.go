package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/rules"
)

// UpgradeSuggestionEngine detects field clusters eligible to be promoted
// into first-class sub-objects and records/rolls back accepted upgrades.
// It runs as a secondary, independent pass over a table's profile.
type UpgradeSuggestionEngine interface {
	// GenerateUpgradeSuggestion returns the detected clusters, or nil when
	// none are found.
	GenerateUpgradeSuggestion(profile *models.SemanticProfile) *models.UpgradeSuggestion

	// AcceptUpgrade applies the suggestion onto the table's persisted
	// profile (merge, not replace) and records a history entry with
	// before/after snapshots.
	AcceptUpgrade(tableName string, suggestion *models.UpgradeSuggestion) (*models.UpgradeHistoryEntry, error)

	// RollbackUpgrade marks the matching history entry rolled back and
	// restores the before-state snapshot onto the live table. Idempotent:
	// rolling back twice, or rolling back an unknown id, is a no-op.
	RollbackUpgrade(id uuid.UUID) bool

	// History returns all recorded upgrades in acceptance order.
	History() []models.UpgradeHistoryEntry

	// HasRolledBack reports whether any upgrade on the table was rolled
	// back; the display layer uses this to alter the stage label.
	HasRolledBack(tableName string) bool
}

type upgradeEngine struct {
	rules  *rules.RuleSet
	store  TableStore
	logger *zap.Logger

	mu      sync.Mutex
	history []models.UpgradeHistoryEntry
}

// NewUpgradeSuggestionEngine creates the upgrade engine over the given
// table store.
func NewUpgradeSuggestionEngine(ruleSet *rules.RuleSet, store TableStore, logger *zap.Logger) UpgradeSuggestionEngine {
	if ruleSet == nil {
		ruleSet = rules.Default()
	}
	return &upgradeEngine{
		rules:  ruleSet,
		store:  store,
		logger: logger.Named("upgrade"),
	}
}

func (e *upgradeEngine) GenerateUpgradeSuggestion(profile *models.SemanticProfile) *models.UpgradeSuggestion {
	if profile == nil {
		return nil
	}

	var candidates []models.UpgradeCandidate
	for _, fp := range profile.Fields {
		if e.rules.IsStatusCluster(fp.FieldName) {
			candidates = append(candidates, models.UpgradeCandidate{
				FieldName:   fp.FieldName,
				Kind:        models.UpgradeKindStatus,
				ObjectName:  humanize(fp.FieldName) + " Object",
				Description: fmt.Sprintf("extract %s into an independent status sub-object", fp.FieldName),
			})
			continue
		}
		if e.rules.IsTimeLike(fp.FieldName, "") && !e.rules.IsLifecycleName(fp.FieldName) {
			if verb := e.rules.FindBehaviorVerb(fp.FieldName); verb != nil {
				candidates = append(candidates, models.UpgradeCandidate{
					FieldName:   fp.FieldName,
					Kind:        models.UpgradeKindBehavior,
					ObjectName:  verb.Label + " Event",
					Description: fmt.Sprintf("extract %s into a %s behavior-event sub-object", fp.FieldName, strings.ToLower(verb.Label)),
				})
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	return &models.UpgradeSuggestion{
		TableName:  profile.TableName,
		Candidates: candidates,
	}
}

func (e *upgradeEngine) AcceptUpgrade(tableName string, suggestion *models.UpgradeSuggestion) (*models.UpgradeHistoryEntry, error) {
	if suggestion == nil || len(suggestion.Candidates) == 0 {
		return nil, fmt.Errorf("no upgrade candidates to accept")
	}

	var entry *models.UpgradeHistoryEntry
	_, err := e.store.Update(tableName, func(prev *models.Table) *models.Table {
		if prev.SemanticAnalysis == nil {
			// Nothing persisted to upgrade onto; keep previous record.
			return nil
		}

		before := prev.SemanticAnalysis.Clone()
		after := prev.SemanticAnalysis.Clone()
		applySuggestion(after, suggestion)

		prev.SemanticAnalysis = after
		entry = &models.UpgradeHistoryEntry{
			ID:          uuid.New(),
			TableName:   tableName,
			BeforeState: before,
			AfterState:  after.Clone(),
			Timestamp:   time.Now(),
		}
		return prev
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply upgrade: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("table %q has no persisted analysis to upgrade", tableName)
	}

	e.mu.Lock()
	e.history = append(e.history, *entry)
	e.mu.Unlock()

	e.logger.Info("upgrade accepted",
		zap.String("table", tableName),
		zap.String("entry_id", entry.ID.String()),
		zap.Int("candidates", len(suggestion.Candidates)))
	return entry, nil
}

// applySuggestion merges the accepted clusters onto the profile: candidate
// fields get a sub-object tag and a relationship edge to the new object.
func applySuggestion(profile *models.SemanticProfile, suggestion *models.UpgradeSuggestion) {
	for _, cand := range suggestion.Candidates {
		fp := profile.FieldProfile(cand.FieldName)
		if fp == nil {
			continue
		}
		tag := "sub-object:" + cand.ObjectName
		if !hasTag(fp.Tags, tag) {
			fp.Tags = append(fp.Tags, tag)
		}
		profile.AddRelationship(models.Relationship{
			TargetTable: cand.ObjectName,
			Type:        "sub-object",
			Key:         cand.FieldName,
			Description: cand.Description,
		})
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (e *upgradeEngine) RollbackUpgrade(id uuid.UUID) bool {
	e.mu.Lock()
	var entry *models.UpgradeHistoryEntry
	for i := range e.history {
		if e.history[i].ID == id {
			entry = &e.history[i]
			break
		}
	}
	if entry == nil || entry.RolledBack {
		e.mu.Unlock()
		return false
	}
	entry.RolledBack = true
	before := entry.BeforeState.Clone()
	tableName := entry.TableName
	e.mu.Unlock()

	// Restore the snapshot onto the live record so the table reflects its
	// pre-upgrade analysis, not just a flagged history entry.
	_, err := e.store.Update(tableName, func(prev *models.Table) *models.Table {
		prev.SemanticAnalysis = before
		if before != nil {
			prev.GovernanceStatus = before.GovernanceStatus
		}
		return prev
	})
	if err != nil {
		e.logger.Warn("rollback could not restore table state",
			zap.String("table", tableName),
			zap.String("entry_id", id.String()),
			zap.Error(err))
	}

	e.logger.Info("upgrade rolled back",
		zap.String("table", tableName),
		zap.String("entry_id", id.String()))
	return true
}

func (e *upgradeEngine) History() []models.UpgradeHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.UpgradeHistoryEntry(nil), e.history...)
}

func (e *upgradeEngine) HasRolledBack(tableName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.history {
		if entry.TableName == tableName && entry.RolledBack {
			return true
		}
	}
	return false
}

// humanize turns a snake_case field name into a display name
// ("order_status" -> "Order Status").
func humanize(name string) string {
	parts := strings.Split(strings.ToLower(name), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
