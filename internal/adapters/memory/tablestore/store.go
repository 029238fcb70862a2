package tablestore

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// Store is an in-memory implementation of tablestore.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	tables map[tablestore.Table][]tablestore.Record
}

func NewStore() *Store {
	return &Store{
		tables: make(map[tablestore.Table][]tablestore.Record),
	}
}

func (s *Store) LoadAll(ctx context.Context, table tablestore.Table) ([]tablestore.Record, error) {
	_ = ctx
	if !table.Valid() {
		return nil, tablestore.ErrUnknownTable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tablestore.CloneRecords(s.tables[table]), nil
}

func (s *Store) ReplaceAll(ctx context.Context, table tablestore.Table, records []tablestore.Record) error {
	_ = ctx
	if !table.Valid() {
		return tablestore.ErrUnknownTable
	}
	rs := tablestore.CloneRecords(records)
	tablestore.SortRecords(rs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = rs
	return nil
}
