// Package tablestore mirrors the logical tables into postgres, one
// (id bigint, data jsonb) table per logical table.
package tablestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// Store is a Postgres implementation of tablestore.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadAll(ctx context.Context, table tablestore.Table) ([]tablestore.Record, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	if !table.Valid() {
		return nil, tablestore.ErrUnknownTable
	}
	ident := pgx.Identifier{string(table)}.Sanitize()
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM `+ident+` ORDER BY id ASC`)
	if err != nil {
		return nil, wrapErr("load", table, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tablestore.Record, error) {
		var r tablestore.Record
		err := row.Scan(&r.ID, &r.Data)
		return r, err
	})
	if err != nil {
		return nil, wrapErr("load", table, err)
	}
	if out == nil {
		out = []tablestore.Record{}
	}
	return out, nil
}

// ReplaceAll deletes the table's rows and copies records in, in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, table tablestore.Table, records []tablestore.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if !table.Valid() {
		return tablestore.ErrUnknownTable
	}
	ident := pgx.Identifier{string(table)}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+ident.Sanitize()); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx, ident, []string{"id", "data"}, pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			// Data is already a JSON document; pgx sends it as is.
			return []any{records[i].ID, string(records[i].Data)}, nil
		}))
		return err
	})
	if err != nil {
		return wrapErr("replace", table, err)
	}
	return nil
}

func wrapErr(op string, table tablestore.Table, err error) error {
	if postgres.IsUndefinedTable(err) {
		return fmt.Errorf("%s %s: %w", op, table, postgres.ErrSchemaMissing)
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}
