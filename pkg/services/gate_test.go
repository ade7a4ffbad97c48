package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
)

func TestGatePass(t *testing.T) {
	gate := newTestGate()

	result := gate.Check(cleanTable("t_orders"))
	assert.Equal(t, models.GatePass, result.Result)
	assert.Empty(t, result.Reasons)
	assert.True(t, result.Details.PrimaryKey)
	assert.True(t, result.Details.Lifecycle)
	assert.True(t, result.Details.TableType)
}

func TestGateMissingPrimaryKeyRejects(t *testing.T) {
	gate := newTestGate()

	table := &models.Table{
		Name: "t_notes",
		Fields: []models.Field{
			{Name: "content", Type: "text"},
			{Name: "create_time", Type: "datetime"},
		},
	}
	result := gate.Check(table)
	assert.Equal(t, models.GateReject, result.Result)
	assert.False(t, result.Details.PrimaryKey)
	assert.Len(t, result.Reasons, 1)
}

func TestGateMissingLifecycleIsSoft(t *testing.T) {
	gate := newTestGate()

	table := &models.Table{
		Name: "t_codes",
		Fields: []models.Field{
			{Name: "id", Type: "bigint", Key: models.FieldKeyPK},
			{Name: "code", Type: "varchar(8)"},
		},
	}
	result := gate.Check(table)
	assert.Equal(t, models.GateReview, result.Result)
	assert.False(t, result.Details.Lifecycle)
	assert.True(t, result.Details.PrimaryKey)
}

func TestGateExcludedTableNames(t *testing.T) {
	gate := newTestGate()

	for _, name := range []string{"tmp_orders", "staging_users", "orders_bak", "access_log"} {
		table := cleanTable(name)
		result := gate.Check(table)
		assert.Equalf(t, models.GateReject, result.Result, "table %s", name)
		assert.Falsef(t, result.Details.TableType, "table %s", name)
	}
}

func TestGateNilTableRejects(t *testing.T) {
	gate := newTestGate()

	result := gate.Check(nil)
	assert.Equal(t, models.GateReject, result.Result)
	assert.NotEmpty(t, result.Reasons)

	result = gate.Check(&models.Table{})
	assert.Equal(t, models.GateReject, result.Result)
}

func TestGateSkipsInvalidExclusionPatterns(t *testing.T) {
	cfg := config.GateConfig{ExcludedTablePatterns: []string{`((`, `^tmp_`}}
	gate := NewGateEvaluator(nil, cfg, testLogger())

	// The broken pattern is skipped; the valid one still applies.
	assert.Equal(t, models.GateReject, gate.Check(cleanTable("tmp_orders")).Result)
	assert.Equal(t, models.GatePass, gate.Check(cleanTable("t_orders")).Result)
}

func TestGateFailedChecks(t *testing.T) {
	result := models.GateResult{
		Result:  models.GateReject,
		Details: models.GateDetails{PrimaryKey: false, Lifecycle: true, TableType: false},
	}
	assert.Equal(t, 2, result.FailedChecks())
}
