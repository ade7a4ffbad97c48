package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/models"
	"github.com/datakite/governance-engine/pkg/retry"
)

const suggesterSystemPrompt = `You are a data governance assistant. Given a database table schema,
classify the semantic role of each column. Respond with a JSON array of objects:
[{"field": "<column name>", "role": "<role>", "suggestion": "<one-line rationale>", "confidence": <0-100>}]
Valid roles: identifier, foreign_key, status, time, measure, attribute, audit, technical,
business_attribute, event_hint. Use "unknown" when unsure. Respond with JSON only.`

const suggesterDetailedSystemPrompt = `You are a senior data governance analyst. Given a database table
schema, classify the semantic role of each column and justify the classification against the column
name, type, and comment. Respond with a JSON array of objects:
[{"field": "<column name>", "role": "<role>", "suggestion": "<two-sentence rationale citing the evidence>", "confidence": <0-100>}]
Valid roles: identifier, foreign_key, status, time, measure, attribute, audit, technical,
business_attribute, event_hint. Use "unknown" when unsure. Respond with JSON only.`

// systemPrompts maps template names from configuration to system prompts.
// Unknown names fall back to the standard template.
var systemPrompts = map[string]string{
	"standard": suggesterSystemPrompt,
	"detailed": suggesterDetailedSystemPrompt,
}

// fieldSuggestionPayload is the wire shape of one suggestion in the model response.
type fieldSuggestionPayload struct {
	Field      string  `json:"field"`
	Role       string  `json:"role"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// RoleSuggester asks an OpenAI-compatible model for per-field role
// suggestions. It satisfies the analysis pipeline's suggester contract.
type RoleSuggester struct {
	client       *Client
	retryConfig  *retry.Config
	temperature  float64
	systemPrompt string
	logger       *zap.Logger
}

// SuggesterOption tunes optional suggester behavior.
type SuggesterOption func(*RoleSuggester)

// WithTemplate selects the system prompt template by its configured name.
// Unknown names keep the standard template.
func WithTemplate(name string) SuggesterOption {
	return func(s *RoleSuggester) {
		if prompt, ok := systemPrompts[name]; ok {
			s.systemPrompt = prompt
		}
	}
}

// NewRoleSuggester creates a model-backed role suggester.
func NewRoleSuggester(client *Client, logger *zap.Logger, opts ...SuggesterOption) *RoleSuggester {
	s := &RoleSuggester{
		client:       client,
		retryConfig:  retry.DefaultConfig(),
		temperature:  0.1,
		systemPrompt: suggesterSystemPrompt,
		logger:       logger.Named("role_suggester"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestRoles requests a role suggestion for every field of the table.
// Transient endpoint failures are retried with backoff; fields missing from
// the response are simply absent from the result map.
func (s *RoleSuggester) SuggestRoles(ctx context.Context, table *models.Table) (map[string]models.RoleSuggestion, error) {
	if table == nil || len(table.Fields) == 0 {
		return map[string]models.RoleSuggestion{}, nil
	}

	prompt := buildSuggestPrompt(table)

	var result *GenerateResponseResult
	err := retry.DoIfRetryable(ctx, s.retryConfig, func() error {
		r, err := s.client.GenerateResponse(ctx, prompt, s.systemPrompt, s.temperature)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("role suggestion request failed: %w", err)
	}

	payload, err := ParseJSONResponse[[]fieldSuggestionPayload](result.Content)
	if err != nil {
		return nil, fmt.Errorf("role suggestion response malformed: %w", err)
	}

	known := make(map[string]struct{}, len(table.Fields))
	for _, f := range table.Fields {
		known[strings.ToLower(f.Name)] = struct{}{}
	}

	suggestions := make(map[string]models.RoleSuggestion, len(payload))
	for _, item := range payload {
		if _, ok := known[strings.ToLower(item.Field)]; !ok {
			s.logger.Warn("suggestion for unknown field ignored",
				zap.String("table", table.Name),
				zap.String("field", item.Field))
			continue
		}
		conf := int(item.Confidence)
		if conf < 0 {
			conf = 0
		}
		if conf > 100 {
			conf = 100
		}
		suggestions[item.Field] = models.RoleSuggestion{
			Role:       normalizeRole(item.Role),
			Suggestion: item.Suggestion,
			Confidence: conf,
		}
	}

	s.logger.Info("role suggestions received",
		zap.String("table", table.Name),
		zap.Int("fields", len(table.Fields)),
		zap.Int("suggested", len(suggestions)),
		zap.Int("total_tokens", result.TotalTokens))
	return suggestions, nil
}

// roleAliases maps the snake_case role names in the prompt contract to the
// canonical role values.
var roleAliases = map[string]models.SemanticRole{
	"identifier":         models.RoleIdentifier,
	"foreign_key":        models.RoleForeignKey,
	"status":             models.RoleStatus,
	"time":               models.RoleTime,
	"measure":            models.RoleMeasure,
	"attribute":          models.RoleAttribute,
	"audit":              models.RoleAudit,
	"technical":          models.RoleTechnical,
	"business_attribute": models.RoleBusAttr,
	"event_hint":         models.RoleEventHint,
}

func normalizeRole(raw string) models.SemanticRole {
	key := strings.ToLower(strings.TrimSpace(raw))
	if role, ok := roleAliases[key]; ok {
		return role
	}
	// Models occasionally echo the canonical form back.
	candidate := models.SemanticRole(strings.TrimSpace(raw))
	if candidate.IsValid() {
		return candidate
	}
	return models.SemanticRole(models.AIRoleUnknown)
}

func buildSuggestPrompt(table *models.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", table.Name)
	if table.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", table.Comment)
	}
	b.WriteString("Columns:\n")
	for _, f := range table.Fields {
		fmt.Fprintf(&b, "- %s %s", f.Name, f.Type)
		if f.IsPrimaryKey() {
			b.WriteString(" (primary key)")
		}
		if f.Comment != "" {
			fmt.Fprintf(&b, " // %s", f.Comment)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
