package services

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
)

func testLogger() *zap.Logger { return zap.NewNop() }

func newTestGate() GateEvaluator {
	return NewGateEvaluator(nil, config.GateConfig{}, testLogger())
}

func newTestAggregator() ReviewStatsAggregator {
	return NewReviewStatsAggregator(NewFieldAnalyzer(nil), newTestGate(), testLogger())
}

func newTestAnalysisService() AnalysisService {
	return NewAnalysisService(
		NewFieldAnalyzer(nil),
		newTestGate(),
		newTestAggregator(),
		NewMockRoleSuggester(nil),
		nil,
		testLogger(),
	)
}

// ordersTable has a marked primary key, a foreign key, a sensitive
// low-confidence column (customer_phone), and a business-event timestamp
// (pay_time) whose rule and AI readings disagree.
func ordersTable() *models.Table {
	return &models.Table{
		Name:    "t_orders",
		Comment: "customer orders",
		Status:  models.TableStatusScanned,
		Fields: []models.Field{
			{Name: "id", Type: "bigint", Key: models.FieldKeyPK},
			{Name: "user_id", Type: "bigint"},
			{Name: "order_status", Type: "varchar(16)"},
			{Name: "total_amount", Type: "decimal(10,2)"},
			{Name: "pay_time", Type: "datetime"},
			{Name: "customer_phone", Type: "varchar(20)"},
			{Name: "create_time", Type: "datetime"},
			{Name: "update_time", Type: "datetime"},
		},
	}
}

// cleanTable analyzes without conflicts, pending reviews, or gate failures.
func cleanTable(name string) *models.Table {
	return &models.Table{
		Name:   name,
		Status: models.TableStatusScanned,
		Fields: []models.Field{
			{Name: "id", Type: "bigint", Key: models.FieldKeyPK},
			{Name: "order_status", Type: "varchar(16)"},
			{Name: "create_time", Type: "datetime"},
			{Name: "update_time", Type: "datetime"},
		},
	}
}

// opaqueTable has no recognizable naming at all, so its analysis score
// falls below the partial-success threshold.
func opaqueTable(name string) *models.Table {
	return &models.Table{
		Name:   name,
		Status: models.TableStatusScanned,
		Fields: []models.Field{
			{Name: "col_a", Type: "varchar(64)"},
			{Name: "col_b", Type: "varchar(64)"},
		},
	}
}

// analyzed runs the full single-table analysis and returns the profile.
func analyzed(t *testing.T, table *models.Table) *models.SemanticProfile {
	t.Helper()
	profile, err := newTestAnalysisService().Analyze(context.Background(), table, AnalyzeOptions{})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return profile
}
