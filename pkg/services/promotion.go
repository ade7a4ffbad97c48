package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/apperrors"
	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/rules"
)

// Checklist item keys, in display order.
const (
	ChecklistPrimaryKeyConfirmed = "primary_key_confirmed"
	ChecklistLifecycleGate       = "lifecycle_gate_passed"
	ChecklistSensitiveResolved   = "sensitive_conflicts_resolved"
	ChecklistImpactAcceptable    = "impact_acceptable"
)

// ChecklistItem is one independently evaluated promotion precondition.
type ChecklistItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Eligibility is the result of evaluating the promotion checklist.
// CanGenerate is the logical AND of all items: there is no partial
// promotion, it is all four checks or none.
type Eligibility struct {
	Checklist   []ChecklistItem `json:"checklist"`
	CanGenerate bool            `json:"canGenerate"`
}

// PromotionBlockedError reports which checklist items blocked a promotion.
// It is a user-facing rejection, not a fatal condition: callers re-show the
// checklist.
type PromotionBlockedError struct {
	Unmet []ChecklistItem
}

func (e *PromotionBlockedError) Error() string {
	keys := make([]string, len(e.Unmet))
	for i, item := range e.Unmet {
		keys[i] = item.Key
	}
	return fmt.Sprintf("promotion blocked by checklist items: %s", strings.Join(keys, ", "))
}

// Unwrap allows errors.Is(err, apperrors.ErrPromotionBlocked).
func (e *PromotionBlockedError) Unwrap() error {
	return apperrors.ErrPromotionBlocked
}

// PromotionEligibilityChecker is the single authority for whether "direct
// generate business object" is offered; when it says no, the only allowed
// action is the weaker, non-binding "add to candidates".
type PromotionEligibilityChecker interface {
	// Eligibility evaluates the four checklist items for a table.
	Eligibility(table *models.Table, profile *models.SemanticProfile) Eligibility

	// Promote generates the business object and returns the updated table
	// record (stage S3) for the caller to splice back. When eligibility
	// fails it returns a *PromotionBlockedError and leaves the table
	// untouched.
	Promote(table *models.Table, profile *models.SemanticProfile) (*models.BusinessObject, *models.Table, error)
}

type promotionChecker struct {
	rules      *rules.RuleSet
	analyzer   FieldAnalyzer
	gate       GateEvaluator
	aggregator ReviewStatsAggregator
	resolver   GovernanceStatusResolver
	logger     *zap.Logger
}

// NewPromotionEligibilityChecker creates the promotion checker.
func NewPromotionEligibilityChecker(
	ruleSet *rules.RuleSet,
	analyzer FieldAnalyzer,
	gate GateEvaluator,
	aggregator ReviewStatsAggregator,
	resolver GovernanceStatusResolver,
	logger *zap.Logger,
) PromotionEligibilityChecker {
	if ruleSet == nil {
		ruleSet = rules.Default()
	}
	return &promotionChecker{
		rules:      ruleSet,
		analyzer:   analyzer,
		gate:       gate,
		aggregator: aggregator,
		resolver:   resolver,
		logger:     logger.Named("promotion"),
	}
}

func (c *promotionChecker) Eligibility(table *models.Table, profile *models.SemanticProfile) Eligibility {
	if table != nil && profile == nil {
		profile = table.SemanticAnalysis
	}

	gateResult := c.gate.Check(table)
	stage := c.resolver.Resolve(table)
	atS3 := stage == models.GovernanceS3

	items := []ChecklistItem{
		c.checkPrimaryKey(table, profile, atS3),
		{
			Key:    ChecklistLifecycleGate,
			Label:  "Lifecycle gate passed",
			Passed: gateResult.Details.Lifecycle,
			Detail: "creation/update timestamp columns present",
		},
		c.checkSensitiveResolved(table, profile, atS3),
		c.checkImpact(table, profile, gateResult),
	}

	can := true
	for _, item := range items {
		if !item.Passed {
			can = false
			break
		}
	}
	return Eligibility{Checklist: items, CanGenerate: can}
}

func (c *promotionChecker) checkPrimaryKey(table *models.Table, profile *models.SemanticProfile, atS3 bool) ChecklistItem {
	item := ChecklistItem{
		Key:   ChecklistPrimaryKeyConfirmed,
		Label: "Primary key confirmed",
	}
	if table == nil {
		item.Detail = "no table record"
		return item
	}

	// Explicit PK markers name the key candidates when present; identifier
	// naming is only the fallback. A foreign key like user_id must not
	// demand confirmation when the table has a marked primary key.
	var candidates []models.Field
	for _, f := range table.Fields {
		if f.IsPrimaryKey() {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		for _, f := range table.Fields {
			if c.rules.IsIdentifierName(f.Name) {
				candidates = append(candidates, f)
			}
		}
	}

	allConfirmed := true
	for _, f := range candidates {
		fp := profile.FieldProfile(f.Name)
		if fp == nil || !fp.Confirmed() {
			allConfirmed = false
		}
	}

	switch {
	case len(candidates) == 0:
		item.Detail = "no primary-key-like field exists"
	case atS3 || allConfirmed:
		item.Passed = true
		item.Detail = "primary key fields confirmed"
	default:
		item.Detail = "primary key fields await review confirmation"
	}
	return item
}

func (c *promotionChecker) checkSensitiveResolved(table *models.Table, profile *models.SemanticProfile, atS3 bool) ChecklistItem {
	item := ChecklistItem{
		Key:   ChecklistSensitiveResolved,
		Label: "Sensitive conflicts resolved",
	}
	if table == nil {
		item.Detail = "no table record"
		return item
	}
	if atS3 {
		item.Passed = true
		item.Detail = "table already fully confirmed"
		return item
	}

	var pending []string
	for _, f := range table.Fields {
		analysis := c.analyzer.Analyze(f)
		if !analysis.Sensitivity.Sensitive() {
			continue
		}
		fp := profile.FieldProfile(f.Name)
		if fp == nil || !fp.Confirmed() {
			pending = append(pending, f.Name)
		}
	}

	if len(pending) == 0 {
		item.Passed = true
		item.Detail = "no sensitive field left pending"
	} else {
		item.Detail = fmt.Sprintf("sensitive fields pending: %s", strings.Join(pending, ", "))
	}
	return item
}

func (c *promotionChecker) checkImpact(table *models.Table, profile *models.SemanticProfile, gateResult models.GateResult) ChecklistItem {
	item := ChecklistItem{
		Key:   ChecklistImpactAcceptable,
		Label: "Impact acceptable",
	}

	stats := c.aggregator.BuildReviewStats(table, profile)
	pending := 0
	if stats != nil {
		pending = stats.PendingReviewFields
	}

	if pending == 0 && gateResult.Result == models.GatePass {
		item.Passed = true
		item.Detail = "no review backlog, gate passed"
	} else {
		item.Detail = fmt.Sprintf("pending review fields: %d, gate: %s", pending, gateResult.Result)
	}
	return item
}

func (c *promotionChecker) Promote(table *models.Table, profile *models.SemanticProfile) (*models.BusinessObject, *models.Table, error) {
	if table == nil {
		return nil, nil, apperrors.ErrNilTable
	}
	if profile == nil {
		profile = table.SemanticAnalysis
	}

	eligibility := c.Eligibility(table, profile)
	if !eligibility.CanGenerate {
		var unmet []ChecklistItem
		for _, item := range eligibility.Checklist {
			if !item.Passed {
				unmet = append(unmet, item)
			}
		}
		return nil, nil, &PromotionBlockedError{Unmet: unmet}
	}

	object := c.buildBusinessObject(table, profile)

	updated := table.Clone()
	updated.Status = models.TableStatusAnalyzed
	updated.GovernanceStatus = models.GovernanceS3
	if updated.SemanticAnalysis != nil {
		updated.SemanticAnalysis.GovernanceStatus = models.GovernanceS3
	}

	c.logger.Info("business object generated",
		zap.String("table", table.Name),
		zap.String("object_id", object.ID),
		zap.String("object_code", object.Code))

	return object, updated, nil
}

func (c *promotionChecker) buildBusinessObject(table *models.Table, profile *models.SemanticProfile) *models.BusinessObject {
	code := businessCode(table.Name)

	name := code
	domain := ""
	description := table.Comment
	if profile != nil {
		if profile.BusinessName != "" {
			name = profile.BusinessName
		}
		domain = profile.BusinessDomain
		if profile.Description != "" {
			description = profile.Description
		}
	}

	fields := make([]models.BusinessObjectField, 0, len(table.Fields))
	for _, f := range table.Fields {
		fields = append(fields, models.BusinessObjectField{
			ID:        uuid.New().String(),
			Name:      f.Name,
			Code:      f.Name,
			Type:      f.Type,
			IsPrimary: f.IsPrimaryKey() || c.rules.IsIdentifierName(f.Name),
			Required:  f.Required,
		})
	}

	return &models.BusinessObject{
		ID:          uuid.New().String(),
		Name:        name,
		Code:        code,
		Domain:      domain,
		Status:      models.BusinessObjectStatusDraft,
		Description: description,
		Fields:      fields,
	}
}

// businessCode derives a singular business-object code from a physical
// table name: prefixes like t_/tb_ are stripped and the trailing word is
// singularized (t_orders -> order).
func businessCode(tableName string) string {
	code := strings.ToLower(tableName)
	for _, prefix := range []string{"t_", "tb_", "tbl_", "dim_", "fact_"} {
		if strings.HasPrefix(code, prefix) {
			code = strings.TrimPrefix(code, prefix)
			break
		}
	}
	return inflection.Singular(code)
}
