// Package rules holds the data-driven pattern tables that back field role
// inference, sensitivity classification, gate checks, and upgrade cluster
// detection. Patterns live here as data (loadable from YAML) rather than as
// inlined logic so new patterns can be added without code changes.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datakite/governance-engine/pkg/models"
)

// RoleRule maps a field name/type pattern to a semantic role. Rules are
// evaluated in order; the first match wins.
type RoleRule struct {
	Name        string              `yaml:"name"`
	NamePattern string              `yaml:"name_pattern"`
	TypePattern string              `yaml:"type_pattern,omitempty"`
	Role        models.SemanticRole `yaml:"role"`
	Confidence  int                 `yaml:"confidence"`
	Reason      string              `yaml:"reason"`

	nameRe *regexp.Regexp
	typeRe *regexp.Regexp
}

// Matches reports whether the rule applies to a field name/type pair.
// Name and type patterns are alternatives: a rule matches when either the
// name pattern matches the name or the type pattern matches the type.
func (r *RoleRule) Matches(fieldName, fieldType string) bool {
	if r.nameRe != nil && r.nameRe.MatchString(strings.ToLower(fieldName)) {
		return true
	}
	if r.typeRe != nil && r.typeRe.MatchString(strings.ToLower(fieldType)) {
		return true
	}
	return false
}

// SensitivityRule maps substring markers in a field name to a sensitivity
// level. Rules are evaluated in order, most specific first.
type SensitivityRule struct {
	Name    string                  `yaml:"name"`
	Markers []string                `yaml:"markers"`
	Level   models.SensitivityLevel `yaml:"level"`
}

// Matches reports whether any marker occurs in the field name.
func (r *SensitivityRule) Matches(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, m := range r.Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// BehaviorVerb maps a recognized action verb to the display label used when
// naming extracted behavior-event sub-objects.
type BehaviorVerb struct {
	Verb  string `yaml:"verb"`
	Label string `yaml:"label"`
}

// RuleSet is the full pattern configuration consumed by the engine.
type RuleSet struct {
	Version string `yaml:"version"`

	RoleRules        []RoleRule        `yaml:"role_rules"`
	SensitivityRules []SensitivityRule `yaml:"sensitivity_rules"`
	BehaviorVerbs    []BehaviorVerb    `yaml:"behavior_verbs"`

	// IdentifierPattern recognizes primary-key-like column names.
	IdentifierPattern string `yaml:"identifier_pattern"`
	// LifecyclePattern recognizes creation/update timestamp columns.
	LifecyclePattern string `yaml:"lifecycle_pattern"`
	// TimePattern recognizes time-like names and types.
	TimePattern string `yaml:"time_pattern"`
	// StatusClusterPattern recognizes status-family columns for upgrades.
	StatusClusterPattern string `yaml:"status_cluster_pattern"`

	identifierRe    *regexp.Regexp
	lifecycleRe     *regexp.Regexp
	timeRe          *regexp.Regexp
	statusClusterRe *regexp.Regexp
}

// Default returns the compiled-in rule set. The patterns mirror the rule
// tables the dashboard ships with; deployments override them via Load.
func Default() *RuleSet {
	rs := &RuleSet{
		Version: "v1.0",
		RoleRules: []RoleRule{
			{
				Name:        "identifier",
				NamePattern: `^id$|_id$`,
				Role:        models.RoleIdentifier,
				Confidence:  95,
				Reason:      "name follows id/_id convention",
			},
			{
				Name:        "event-time",
				NamePattern: `time|date`,
				TypePattern: `time|date|timestamp|datetime`,
				Role:        models.RoleEventHint,
				Confidence:  90,
				Reason:      "name or type indicates a timestamp",
			},
			{
				Name:        "status",
				NamePattern: `status|state|type`,
				Role:        models.RoleStatus,
				Confidence:  85,
				Reason:      "name indicates an enumerated state",
			},
			{
				Name:        "measure",
				NamePattern: `amount|price|total|count|qty|quantity`,
				TypePattern: `decimal|numeric|money|double|float`,
				Role:        models.RoleMeasure,
				Confidence:  80,
				Reason:      "name or type indicates a monetary or count value",
			},
		},
		SensitivityRules: []SensitivityRule{
			{
				Name:    "identity-financial",
				Markers: []string{"id_card", "idcard", "bank", "passport", "ssn"},
				Level:   models.SensitivityL4,
			},
			{
				Name:    "contact-pii",
				Markers: []string{"mobile", "phone", "name", "address", "email"},
				Level:   models.SensitivityL3,
			},
			{
				Name:    "org-scoped",
				Markers: []string{"user", "employee", "staff", "member"},
				Level:   models.SensitivityL2,
			},
		},
		BehaviorVerbs: []BehaviorVerb{
			{Verb: "pay", Label: "Payment"},
			{Verb: "create", Label: "Creation"},
			{Verb: "update", Label: "Update"},
			{Verb: "submit", Label: "Submission"},
			{Verb: "approve", Label: "Approval"},
			{Verb: "confirm", Label: "Confirmation"},
			{Verb: "cancel", Label: "Cancellation"},
			{Verb: "delete", Label: "Deletion"},
			{Verb: "login", Label: "Login"},
			{Verb: "logout", Label: "Logout"},
			{Verb: "sign", Label: "Signing"},
			{Verb: "complete", Label: "Completion"},
			{Verb: "finish", Label: "Finish"},
			{Verb: "start", Label: "Start"},
			{Verb: "end", Label: "End"},
		},
		IdentifierPattern:    `^id$|_id$`,
		LifecyclePattern:     `create_time|created_at|gmt_create|update_time|updated_at|gmt_modified`,
		TimePattern:          `time|date|timestamp|datetime`,
		StatusClusterPattern: `status|state|phase|stage`,
	}
	if err := rs.Compile(); err != nil {
		// The default table is a compile-time constant; a bad pattern here
		// is a programming error.
		panic(err)
	}
	return rs
}

// Load reads a rule set from a YAML file and compiles its patterns.
// Sections missing from the file fall back to the defaults.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	rs := Default()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Compile builds the regexes backing the pattern strings. Must be called
// after any mutation of the pattern fields.
func (rs *RuleSet) Compile() error {
	for i := range rs.RoleRules {
		rule := &rs.RoleRules[i]
		rule.nameRe = nil
		rule.typeRe = nil
		if rule.NamePattern != "" {
			re, err := regexp.Compile(rule.NamePattern)
			if err != nil {
				return fmt.Errorf("role rule %q: invalid name pattern: %w", rule.Name, err)
			}
			rule.nameRe = re
		}
		if rule.TypePattern != "" {
			re, err := regexp.Compile(rule.TypePattern)
			if err != nil {
				return fmt.Errorf("role rule %q: invalid type pattern: %w", rule.Name, err)
			}
			rule.typeRe = re
		}
	}

	var err error
	if rs.identifierRe, err = regexp.Compile(rs.IdentifierPattern); err != nil {
		return fmt.Errorf("invalid identifier pattern: %w", err)
	}
	if rs.lifecycleRe, err = regexp.Compile(rs.LifecyclePattern); err != nil {
		return fmt.Errorf("invalid lifecycle pattern: %w", err)
	}
	if rs.timeRe, err = regexp.Compile(rs.TimePattern); err != nil {
		return fmt.Errorf("invalid time pattern: %w", err)
	}
	if rs.statusClusterRe, err = regexp.Compile(rs.StatusClusterPattern); err != nil {
		return fmt.Errorf("invalid status cluster pattern: %w", err)
	}
	return nil
}

// MatchRole returns the first role rule matching the field name/type, or nil.
func (rs *RuleSet) MatchRole(fieldName, fieldType string) *RoleRule {
	for i := range rs.RoleRules {
		if rs.RoleRules[i].Matches(fieldName, fieldType) {
			return &rs.RoleRules[i]
		}
	}
	return nil
}

// MatchSensitivity returns the level of the first matching sensitivity rule,
// defaulting to L1.
func (rs *RuleSet) MatchSensitivity(fieldName string) models.SensitivityLevel {
	for i := range rs.SensitivityRules {
		if rs.SensitivityRules[i].Matches(fieldName) {
			return rs.SensitivityRules[i].Level
		}
	}
	return models.SensitivityL1
}

// IsIdentifierName reports whether a column name follows the primary-key
// naming convention.
func (rs *RuleSet) IsIdentifierName(fieldName string) bool {
	return rs.identifierRe.MatchString(strings.ToLower(fieldName))
}

// IsLifecycleName reports whether a column name follows the creation/update
// timestamp convention.
func (rs *RuleSet) IsLifecycleName(fieldName string) bool {
	return rs.lifecycleRe.MatchString(strings.ToLower(fieldName))
}

// IsTimeLike reports whether a column name or type indicates a timestamp.
func (rs *RuleSet) IsTimeLike(fieldName, fieldType string) bool {
	return rs.timeRe.MatchString(strings.ToLower(fieldName)) ||
		rs.timeRe.MatchString(strings.ToLower(fieldType))
}

// IsStatusCluster reports whether a column belongs to the status field
// family used by upgrade detection.
func (rs *RuleSet) IsStatusCluster(fieldName string) bool {
	return rs.statusClusterRe.MatchString(strings.ToLower(fieldName))
}

// FindBehaviorVerb returns the verb lexicon entry contained in the field
// name, or nil when none matches.
func (rs *RuleSet) FindBehaviorVerb(fieldName string) *BehaviorVerb {
	lower := strings.ToLower(fieldName)
	for i := range rs.BehaviorVerbs {
		if strings.Contains(lower, rs.BehaviorVerbs[i].Verb) {
			return &rs.BehaviorVerbs[i]
		}
	}
	return nil
}
