package services

import (
	"context"
	"sync"
	"time"

	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/rules"
)

// RoleSuggester produces AI-derived role suggestions per field, keyed by
// field name. Implementations include the OpenAI-compatible client in
// pkg/llm and the deterministic mock below; both sit behind this interface
// so the engine never depends on real inference.
type RoleSuggester interface {
	SuggestRoles(ctx context.Context, table *models.Table) (map[string]models.RoleSuggestion, error)
}

type cachedSuggestions struct {
	fetchedAt   time.Time
	suggestions map[string]models.RoleSuggestion
}

// CachingRoleSuggester memoizes suggestions per table for the configured
// assist TTL, so re-analyzing an unchanged table within the window skips
// the model round trip. Errors are never cached.
type CachingRoleSuggester struct {
	inner RoleSuggester
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSuggestions
}

// NewCachingRoleSuggester wraps inner with a TTL cache keyed by table name.
func NewCachingRoleSuggester(inner RoleSuggester, assist config.AssistConfig) *CachingRoleSuggester {
	return &CachingRoleSuggester{
		inner: inner,
		ttl:   assist.WithDefaults().TTLDuration(),
		now:   time.Now,
		cache: make(map[string]cachedSuggestions),
	}
}

func (c *CachingRoleSuggester) SuggestRoles(ctx context.Context, table *models.Table) (map[string]models.RoleSuggestion, error) {
	if table == nil {
		return c.inner.SuggestRoles(ctx, table)
	}

	c.mu.Lock()
	if entry, ok := c.cache[table.Name]; ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		out := make(map[string]models.RoleSuggestion, len(entry.suggestions))
		for name, s := range entry.suggestions {
			out[name] = s
		}
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	suggestions, err := c.inner.SuggestRoles(ctx, table)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[table.Name] = cachedSuggestions{fetchedAt: c.now(), suggestions: suggestions}
	c.mu.Unlock()
	return suggestions, nil
}

// MockRoleSuggester is a deterministic suggester used in place of a model
// endpoint. It re-derives roles from the rule table with a slightly
// different reading so rule-vs-AI conflicts actually occur: verb-named time
// fields are suggested as plain Time rather than EventHint.
type MockRoleSuggester struct {
	rules *rules.RuleSet
}

// NewMockRoleSuggester creates the deterministic suggester. A nil rule set
// selects the compiled-in defaults.
func NewMockRoleSuggester(ruleSet *rules.RuleSet) *MockRoleSuggester {
	if ruleSet == nil {
		ruleSet = rules.Default()
	}
	return &MockRoleSuggester{rules: ruleSet}
}

func (m *MockRoleSuggester) SuggestRoles(ctx context.Context, table *models.Table) (map[string]models.RoleSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if table == nil {
		return map[string]models.RoleSuggestion{}, nil
	}

	out := make(map[string]models.RoleSuggestion, len(table.Fields))
	for _, f := range table.Fields {
		out[f.Name] = m.suggest(f)
	}
	return out, nil
}

func (m *MockRoleSuggester) suggest(f models.Field) models.RoleSuggestion {
	switch {
	case f.IsPrimaryKey() || m.rules.IsIdentifierName(f.Name):
		return models.RoleSuggestion{
			Role:       models.RoleIdentifier,
			Suggestion: "identifier column",
			Confidence: 92,
		}
	case m.rules.IsLifecycleName(f.Name):
		// Audit timestamps read the same from both sources.
		return models.RoleSuggestion{
			Role:       models.RoleEventHint,
			Suggestion: "record lifecycle timestamp",
			Confidence: 88,
		}
	case m.rules.IsTimeLike(f.Name, f.Type):
		if verb := m.rules.FindBehaviorVerb(f.Name); verb != nil {
			// The rule table reads these as EventHint; the model reads them
			// as a concrete business event time, which surfaces a conflict.
			return models.RoleSuggestion{
				Role:       models.RoleTime,
				Suggestion: verb.Label + " event time",
				Confidence: 84,
			}
		}
		return models.RoleSuggestion{
			Role:       models.RoleEventHint,
			Suggestion: "timestamp column",
			Confidence: 80,
		}
	case m.rules.IsStatusCluster(f.Name):
		return models.RoleSuggestion{
			Role:       models.RoleStatus,
			Suggestion: "enumerated state column",
			Confidence: 82,
		}
	default:
		if rule := m.rules.MatchRole(f.Name, f.Type); rule != nil {
			return models.RoleSuggestion{
				Role:       rule.Role,
				Suggestion: rule.Reason,
				Confidence: rule.Confidence,
			}
		}
		return models.RoleSuggestion{
			Role:       models.SemanticRole(models.AIRoleUnknown),
			Suggestion: models.AIRoleUnknown,
			Confidence: 0,
		}
	}
}
