// Package tablestore keeps the table mirror in redis, one JSON array per table
// under "<prefix>:<table>".
package tablestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

const DefaultKeyPrefix = "terreiro"

// NewClient connects to redis with short timeouts.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// Store is a redis implementation of tablestore.Store.
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

type wireRecord struct {
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data"`
}

func (s *Store) LoadAll(ctx context.Context, table tablestore.Table) ([]tablestore.Record, error) {
	if s.client == nil {
		return nil, errors.New("nil redis client")
	}
	if !table.Valid() {
		return nil, tablestore.ErrUnknownTable
	}
	raw, err := s.client.Get(ctx, s.key(table)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []tablestore.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	var wire []wireRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}
	out := make([]tablestore.Record, 0, len(wire))
	for _, w := range wire {
		out = append(out, tablestore.Record{ID: w.ID, Data: w.Data})
	}
	tablestore.SortRecords(out)
	return out, nil
}

// ReplaceAll overwrites the table's key with a single SET.
func (s *Store) ReplaceAll(ctx context.Context, table tablestore.Table, records []tablestore.Record) error {
	if s.client == nil {
		return errors.New("nil redis client")
	}
	if !table.Valid() {
		return tablestore.ErrUnknownTable
	}
	rs := tablestore.CloneRecords(records)
	tablestore.SortRecords(rs)
	wire := make([]wireRecord, 0, len(rs))
	for _, r := range rs {
		wire = append(wire, wireRecord{ID: r.ID, Data: r.Data})
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	if err := s.client.Set(ctx, s.key(table), b, 0).Err(); err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}
	return nil
}

// Healthy verifies redis connectivity.
func (s *Store) Healthy(ctx context.Context) bool {
	if s == nil || s.client == nil {
		return false
	}
	return s.client.Ping(ctx).Err() == nil
}

func (s *Store) key(t tablestore.Table) string {
	return s.prefix + ":" + string(t)
}
