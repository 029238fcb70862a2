package tablestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Table names a logical table of the mirror.
type Table string

const (
	TableMembers         Table = "members"
	TableBoats           Table = "boats"
	TableCeremonyHistory Table = "ceremony_history"
	TableExternalEvents  Table = "external_events"
	TableCelebrations    Table = "celebration_events"
)

// Tables lists every logical table.
var Tables = []Table{
	TableMembers,
	TableBoats,
	TableCeremonyHistory,
	TableExternalEvents,
	TableCelebrations,
}

// ErrUnknownTable is returned for a table name outside Tables.
var ErrUnknownTable = errors.New("unknown table")

// Valid reports whether t is one of Tables.
func (t Table) Valid() bool {
	for _, v := range Tables {
		if v == t {
			return true
		}
	}
	return false
}

// Record is one stored row: an integer id and an opaque JSON document.
type Record struct {
	ID   int64
	Data json.RawMessage
}

// Store is a full-table snapshot store.
//
// ReplaceAll must fully overwrite the prior contents of the table (no merge).
// LoadAll returns records ordered by ID ascending.
type Store interface {
	LoadAll(ctx context.Context, table Table) ([]Record, error)
	ReplaceAll(ctx context.Context, table Table, records []Record) error
}

// Syncer accepts settled table snapshots for asynchronous persistence.
type Syncer interface {
	Submit(table Table, records []Record)
}

// Encode marshals items into records keyed by id.
func Encode[T any](items []T, id func(T) int64) ([]Record, error) {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", id(it), err)
		}
		out = append(out, Record{ID: id(it), Data: b})
	}
	SortRecords(out)
	return out, nil
}

// Decode unmarshals records. Enum fields are validated by their UnmarshalText methods.
func Decode[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SortRecords orders records by ID ascending.
func SortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

// CloneRecords deep-copies rs.
func CloneRecords(rs []Record) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = Record{ID: r.ID, Data: append(json.RawMessage(nil), r.Data...)}
	}
	return out
}
