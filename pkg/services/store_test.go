package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/governance-engine/pkg/apperrors"
	"github.com/datakite/governance-engine/pkg/models"
)

func TestStoreGetReturnsCopies(t *testing.T) {
	store := NewInMemoryTableStore([]*models.Table{ordersTable()})

	first, ok := store.Get("t_orders")
	require.True(t, ok)
	first.Fields[0].Name = "mutated"

	second, ok := store.Get("t_orders")
	require.True(t, ok)
	assert.Equal(t, "id", second.Fields[0].Name)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStoreListPreservesInsertionOrder(t *testing.T) {
	store := NewInMemoryTableStore([]*models.Table{
		cleanTable("t_users"),
		cleanTable("t_orders"),
		cleanTable("t_items"),
	})

	var names []string
	for _, table := range store.List() {
		names = append(names, table.Name)
	}
	assert.Equal(t, []string{"t_users", "t_orders", "t_items"}, names)
}

func TestStoreUpdateReplacesWholeRecord(t *testing.T) {
	store := NewInMemoryTableStore([]*models.Table{ordersTable()})

	updated, err := store.Update("t_orders", func(prev *models.Table) *models.Table {
		prev.GovernanceStatus = models.GovernanceS1
		prev.Status = models.TableStatusAnalyzed
		return prev
	})
	require.NoError(t, err)
	assert.Equal(t, models.GovernanceS1, updated.GovernanceStatus)

	stored, _ := store.Get("t_orders")
	assert.Equal(t, models.GovernanceS1, stored.GovernanceStatus)
	assert.Equal(t, models.TableStatusAnalyzed, stored.Status)
}

func TestStoreUpdateNilKeepsPrevious(t *testing.T) {
	store := NewInMemoryTableStore([]*models.Table{ordersTable()})

	got, err := store.Update("t_orders", func(prev *models.Table) *models.Table {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusScanned, got.Status)
}

func TestStoreUpdateUnknownTable(t *testing.T) {
	store := NewInMemoryTableStore(nil)
	_, err := store.Update("missing", func(prev *models.Table) *models.Table { return prev })
	assert.ErrorIs(t, err, apperrors.ErrTableNotFound)
}

func TestStoreUpdateCannotRenameKey(t *testing.T) {
	store := NewInMemoryTableStore([]*models.Table{ordersTable()})

	got, err := store.Update("t_orders", func(prev *models.Table) *models.Table {
		prev.Name = "t_renamed"
		return prev
	})
	require.NoError(t, err)
	assert.Equal(t, "t_orders", got.Name)

	_, ok := store.Get("t_renamed")
	assert.False(t, ok)
	_, ok = store.Get("t_orders")
	assert.True(t, ok)
}

func TestStoreReplaceInsertsAndOverwrites(t *testing.T) {
	store := NewInMemoryTableStore(nil)

	table := cleanTable("t_new")
	store.Replace(table)

	got, ok := store.Get("t_new")
	require.True(t, ok)
	assert.Equal(t, "t_new", got.Name)

	// Replacing stores a copy, not the caller's pointer.
	table.Status = models.TableStatusAnalyzed
	got, _ = store.Get("t_new")
	assert.Equal(t, models.TableStatusScanned, got.Status)

	store.Replace(nil) // ignored
	assert.Len(t, store.List(), 1)
}
