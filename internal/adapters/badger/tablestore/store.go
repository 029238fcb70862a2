// Package tablestore keeps the table mirror in a local badger database.
//
// Each record is stored under "<table>/" followed by its id as 8 big-endian
// bytes, so a prefix scan returns a table's records in id order.
package tablestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

type Options struct {
	// Dir is the data directory. Empty runs badger in memory.
	Dir    string
	Logger *slog.Logger
}

// Store is a badger implementation of tablestore.Store.
type Store struct {
	db *badger.DB
}

func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir).
		WithLogger(newBadgerLogger(opts.Logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) LoadAll(ctx context.Context, table tablestore.Table) ([]tablestore.Record, error) {
	if s.db == nil {
		return nil, errors.New("nil badger db")
	}
	if !table.Valid() {
		return nil, tablestore.ErrUnknownTable
	}
	prefix := tablePrefix(table)

	var out []tablestore.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id, err := recordID(item.Key(), prefix)
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, tablestore.Record{ID: id, Data: data})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	if out == nil {
		out = []tablestore.Record{}
	}
	return out, nil
}

// ReplaceAll deletes every record of table and writes records in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, table tablestore.Table, records []tablestore.Record) error {
	if s.db == nil {
		return errors.New("nil badger db")
	}
	if !table.Valid() {
		return tablestore.ErrUnknownTable
	}
	prefix := tablePrefix(table)

	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := txn.Set(recordKey(prefix, r.ID), append([]byte(nil), r.Data...)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}
	return nil
}

func tablePrefix(t tablestore.Table) []byte {
	return []byte(string(t) + "/")
}

func recordKey(prefix []byte, id int64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], uint64(id))
	return k
}

func recordID(key, prefix []byte) (int64, error) {
	if len(key) != len(prefix)+8 {
		return 0, fmt.Errorf("malformed key %q", key)
	}
	return int64(binary.BigEndian.Uint64(key[len(prefix):])), nil
}
