package services

import (
	"sync"

	"github.com/datakite/governance-engine/pkg/apperrors"
	"github.com/datakite/governance-engine/pkg/models"
)

// TableStore is the injectable shared table collection. All mutations are
// whole-record replacements keyed by table name (optimistic,
// last-writer-wins); the engine never mutates a stored record in place.
type TableStore interface {
	// Get returns a copy of the named table.
	Get(name string) (*models.Table, bool)

	// List returns copies of all tables in insertion order.
	List() []*models.Table

	// Update applies a reducer-style replacement: fn receives a copy of the
	// current record and returns the next record. Returning nil keeps the
	// previous record.
	Update(name string, fn func(prev *models.Table) *models.Table) (*models.Table, error)

	// Replace stores the record wholesale, inserting it if absent.
	Replace(table *models.Table)
}

// InMemoryTableStore is the reference TableStore backed by a map. Callers
// with their own store satisfy the interface instead.
type InMemoryTableStore struct {
	mu     sync.RWMutex
	tables map[string]*models.Table
	order  []string
}

// NewInMemoryTableStore creates a store seeded with the given records.
func NewInMemoryTableStore(tables []*models.Table) *InMemoryTableStore {
	s := &InMemoryTableStore{tables: make(map[string]*models.Table, len(tables))}
	for _, t := range tables {
		if t == nil || t.Name == "" {
			continue
		}
		if _, exists := s.tables[t.Name]; !exists {
			s.order = append(s.order, t.Name)
		}
		s.tables[t.Name] = t.Clone()
	}
	return s
}

func (s *InMemoryTableStore) Get(name string) (*models.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (s *InMemoryTableStore) List() []*models.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Table, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tables[name].Clone())
	}
	return out
}

func (s *InMemoryTableStore) Update(name string, fn func(prev *models.Table) *models.Table) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.tables[name]
	if !ok {
		return nil, apperrors.ErrTableNotFound
	}
	next := fn(prev.Clone())
	if next == nil {
		return prev.Clone(), nil
	}
	next.Name = name // the key never changes through an update
	s.tables[name] = next
	return next.Clone(), nil
}

func (s *InMemoryTableStore) Replace(table *models.Table) {
	if table == nil || table.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[table.Name]; !exists {
		s.order = append(s.order, table.Name)
	}
	s.tables[table.Name] = table.Clone()
}
