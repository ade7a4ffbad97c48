package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
)

func TestMockSuggesterCoversAllFields(t *testing.T) {
	suggester := NewMockRoleSuggester(nil)

	table := ordersTable()
	suggestions, err := suggester.SuggestRoles(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, suggestions, len(table.Fields))
}

func TestMockSuggesterAgreesWithRulesOnStableColumns(t *testing.T) {
	suggester := NewMockRoleSuggester(nil)
	analyzer := NewFieldAnalyzer(nil)

	table := ordersTable()
	suggestions, err := suggester.SuggestRoles(context.Background(), table)
	require.NoError(t, err)

	for _, name := range []string{"id", "user_id", "order_status", "create_time", "update_time"} {
		field := table.Field(name)
		rule := analyzer.Analyze(*field)
		assert.Truef(t, rule.Role.Equal(suggestions[name].Role),
			"field %s: rule %s vs suggestion %s", name, rule.Role, suggestions[name].Role)
	}
}

func TestMockSuggesterDisagreesOnBehaviorTimestamps(t *testing.T) {
	suggester := NewMockRoleSuggester(nil)

	suggestions, err := suggester.SuggestRoles(context.Background(), ordersTable())
	require.NoError(t, err)

	// Verb-named timestamps read as a concrete event time, diverging from
	// the rule table's EventHint.
	payTime := suggestions["pay_time"]
	assert.True(t, payTime.Role.Equal(models.RoleTime))
	assert.Contains(t, payTime.Suggestion, "Payment")
}

func TestMockSuggesterUnknownForOpaqueColumns(t *testing.T) {
	suggester := NewMockRoleSuggester(nil)

	suggestions, err := suggester.SuggestRoles(context.Background(), opaqueTable("t_misc"))
	require.NoError(t, err)
	for name, s := range suggestions {
		assert.Equalf(t, models.SemanticRole(models.AIRoleUnknown), s.Role, "field %s", name)
		assert.Zerof(t, s.Confidence, "field %s", name)
	}
}

func TestCachingSuggesterHonorsTTL(t *testing.T) {
	calls := 0
	mock := NewMockRoleSuggester(nil)
	inner := suggesterFunc(func(ctx context.Context, table *models.Table) (map[string]models.RoleSuggestion, error) {
		calls++
		return mock.SuggestRoles(ctx, table)
	})

	caching := NewCachingRoleSuggester(inner, config.AssistConfig{TTL: "1h"})
	clock := time.Now()
	caching.now = func() time.Time { return clock }

	table := ordersTable()
	first, err := caching.SuggestRoles(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, first, len(table.Fields))
	assert.Equal(t, 1, calls)

	// Within the TTL the cached suggestions are served.
	cached, err := caching.SuggestRoles(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1, calls)

	// A different table never shares the cache entry.
	_, err = caching.SuggestRoles(context.Background(), cleanTable("t_codes"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// Past expiry the model is consulted again.
	clock = clock.Add(time.Hour + time.Minute)
	_, err = caching.SuggestRoles(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCachingSuggesterDoesNotCacheErrors(t *testing.T) {
	calls := 0
	inner := suggesterFunc(func(ctx context.Context, table *models.Table) (map[string]models.RoleSuggestion, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("model endpoint unreachable")
		}
		return NewMockRoleSuggester(nil).SuggestRoles(ctx, table)
	})

	caching := NewCachingRoleSuggester(inner, config.AssistConfig{})
	_, err := caching.SuggestRoles(context.Background(), ordersTable())
	require.Error(t, err)

	_, err = caching.SuggestRoles(context.Background(), ordersTable())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMockSuggesterHonorsContext(t *testing.T) {
	suggester := NewMockRoleSuggester(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := suggester.SuggestRoles(ctx, ordersTable())
	assert.ErrorIs(t, err, context.Canceled)
}
