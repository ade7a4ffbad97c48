package services

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/rules"
)

// GateEvaluator runs the named gatekeeper policy checks on a table and
// produces PASS/REVIEW/REJECT with reasons. Pure and total: never errors,
// missing field data counts as check failure.
//
// Severity policy: primaryKey and tableType are hard checks (failure is
// REJECT); lifecycle is soft (failure alone is REVIEW).
type GateEvaluator interface {
	Check(table *models.Table) models.GateResult
}

type gateEvaluator struct {
	rules    *rules.RuleSet
	excluded []*regexp.Regexp
	logger   *zap.Logger
}

// NewGateEvaluator creates a gate evaluator. Exclusion patterns come from
// configuration, not from engine code; patterns that fail to compile are
// skipped with a warning rather than failing construction.
func NewGateEvaluator(ruleSet *rules.RuleSet, cfg config.GateConfig, logger *zap.Logger) GateEvaluator {
	if ruleSet == nil {
		ruleSet = rules.Default()
	}
	cfg = cfg.WithDefaults()

	excluded := make([]*regexp.Regexp, 0, len(cfg.ExcludedTablePatterns))
	for _, p := range cfg.ExcludedTablePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			logger.Warn("skipping invalid excluded-table pattern",
				zap.String("pattern", p),
				zap.Error(err))
			continue
		}
		excluded = append(excluded, re)
	}

	return &gateEvaluator{
		rules:    ruleSet,
		excluded: excluded,
		logger:   logger.Named("gate"),
	}
}

func (g *gateEvaluator) Check(table *models.Table) models.GateResult {
	if table == nil || table.Name == "" {
		return models.GateResult{
			Result:  models.GateReject,
			Reasons: []string{"table record is missing or has no name"},
		}
	}

	details := models.GateDetails{
		PrimaryKey: g.hasPrimaryKey(table.Fields),
		Lifecycle:  g.hasLifecycleColumns(table.Fields),
		TableType:  !g.isExcludedName(table.Name),
	}

	var reasons []string
	if !details.PrimaryKey {
		reasons = append(reasons, "no primary key column detected (PK marker or id/_id naming)")
	}
	if !details.Lifecycle {
		reasons = append(reasons, "no creation/update timestamp columns detected")
	}
	if !details.TableType {
		reasons = append(reasons, fmt.Sprintf("table name %q matches an excluded naming convention", table.Name))
	}

	result := models.GatePass
	switch {
	case !details.PrimaryKey || !details.TableType:
		result = models.GateReject
	case !details.Lifecycle:
		result = models.GateReview
	}

	return models.GateResult{Result: result, Details: details, Reasons: reasons}
}

func (g *gateEvaluator) hasPrimaryKey(fields []models.Field) bool {
	for _, f := range fields {
		if f.IsPrimaryKey() || g.rules.IsIdentifierName(f.Name) {
			return true
		}
	}
	return false
}

func (g *gateEvaluator) hasLifecycleColumns(fields []models.Field) bool {
	for _, f := range fields {
		if g.rules.IsLifecycleName(f.Name) {
			return true
		}
	}
	return false
}

func (g *gateEvaluator) isExcludedName(name string) bool {
	lower := strings.ToLower(name)
	for _, re := range g.excluded {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
