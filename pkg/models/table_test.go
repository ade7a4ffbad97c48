package models

import "testing"

func TestTableFieldLookup(t *testing.T) {
	table := &Table{
		Name: "t_orders",
		Fields: []Field{
			{Name: "id", Key: FieldKeyPK},
			{Name: "status"},
		},
	}

	f := table.Field("status")
	if f == nil {
		t.Fatal("expected field lookup to succeed")
	}
	f.Type = "varchar(32)"
	if table.Fields[1].Type != "varchar(32)" {
		t.Error("expected Field to return a live pointer")
	}

	if table.Field("missing") != nil {
		t.Error("expected nil for unknown field")
	}

	var nilTable *Table
	if nilTable.Field("id") != nil {
		t.Error("expected nil-receiver lookup to return nil")
	}
}

func TestTableCloneIsDeep(t *testing.T) {
	table := &Table{
		Name:             "t_orders",
		GovernanceStatus: GovernanceS2,
		Fields:           []Field{{Name: "id", Key: FieldKeyPK}},
		SemanticAnalysis: &SemanticProfile{
			TableName: "t_orders",
			Fields:    []FieldSemanticProfile{{FieldName: "id", Role: RoleIdentifier}},
		},
		ReviewStats: &ReviewStats{PendingReviewFields: 1},
		LastRun:     &RunSummary{RunID: "run-1", Status: RunStatusDone},
	}

	cp := table.Clone()
	cp.Fields[0].Name = "mutated"
	cp.SemanticAnalysis.Fields[0].Role = RoleTechnical
	cp.ReviewStats.PendingReviewFields = 9
	cp.LastRun.Status = RunStatusFailed

	if table.Fields[0].Name != "id" {
		t.Error("fields shared between clone and original")
	}
	if table.SemanticAnalysis.Fields[0].Role != RoleIdentifier {
		t.Error("profile shared between clone and original")
	}
	if table.ReviewStats.PendingReviewFields != 1 {
		t.Error("review stats shared between clone and original")
	}
	if table.LastRun.Status != RunStatusDone {
		t.Error("run summary shared between clone and original")
	}
}
