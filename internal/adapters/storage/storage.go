// Package storage opens the table store and idempotency store selected by the configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badgertablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/badger/tablestore"
	memidempotency "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/idempotency"
	memtablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/tablestore"
	postgres "github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/idempotency"
	pgtablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/tablestore"
	redistablestore "github.com/Overland-East-Bay/terreiro-api/internal/adapters/redis/tablestore"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/config"
	idempotencyport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

const idempotencySweepInterval = time.Hour

type Storage struct {
	Tables tablestore.Store
	Idem   idempotencyport.Store
	// Sweep, when set, runs until ctx ends and purges expired idempotency records.
	Sweep   func(ctx context.Context)
	closers []func()
}

// Close releases the backend connections.
func (s Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Open connects the configured backend. Postgres is migrated first.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (Storage, error) {
	st := Storage{Idem: memidempotency.NewStore(cfg.IdempotencyTTL)}

	switch cfg.StorageBackend {
	case config.StorageBadger:
		bs, err := badgertablestore.Open(badgertablestore.Options{Dir: cfg.BadgerDir, Logger: logger})
		if err != nil {
			return Storage{}, err
		}
		st.Tables = bs
		st.closers = append(st.closers, func() {
			if err := bs.Close(); err != nil {
				logger.Warn("close badger", "err", err)
			}
		})
	case config.StorageRedis:
		client := redistablestore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		rs := redistablestore.NewStore(client, cfg.RedisPrefix)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if !rs.Healthy(pingCtx) {
			_ = client.Close()
			return Storage{}, fmt.Errorf("redis at %s is not reachable", cfg.RedisAddr)
		}
		st.Tables = rs
		st.closers = append(st.closers, func() { _ = client.Close() })
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return Storage{}, fmt.Errorf("invalid postgres config: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return Storage{}, err
		}
		st.Tables = pgtablestore.NewStore(pool)
		st.Idem = pgidempotency.NewStore(pool, cfg.TokenIssuer, cfg.IdempotencyTTL)
		st.closers = append(st.closers, pool.Close)
	case config.StorageMemory, "":
		logger.Warn("memory storage; state is lost on restart")
		st.Tables = memtablestore.NewStore()
	default:
		return Storage{}, errors.New("unknown storage backend " + cfg.StorageBackend)
	}
	if sw, ok := st.Idem.(idempotencyport.Sweeper); ok {
		st.Sweep = func(ctx context.Context) { sweepIdempotency(ctx, sw, logger) }
	}
	return st, nil
}

func sweepIdempotency(ctx context.Context, s idempotencyport.Sweeper, logger *slog.Logger) {
	t := time.NewTicker(idempotencySweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("idempotency sweep", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("idempotency sweep", "deleted", n)
			}
		}
	}
}
