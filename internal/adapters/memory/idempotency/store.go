package idempotency

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
)

// DefaultTTL is how long a stored response can be replayed.
const DefaultTTL = 24 * time.Hour

// Store is an in-memory implementation of idempotency.Store backed by an
// expiring cache. It is safe for concurrent use.
type Store struct {
	c *gocache.Cache
}

// NewStore returns a store whose records expire after ttl (DefaultTTL when zero).
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: gocache.New(ttl, ttl/2)}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	v, ok := s.c.Get(cacheKey(fp))
	if !ok {
		return idempotency.Record{}, false, nil
	}
	rec := v.(idempotency.Record)
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	rec.Body = append([]byte(nil), rec.Body...)
	s.c.SetDefault(cacheKey(fp), rec)
	return nil
}

func cacheKey(fp idempotency.Fingerprint) string {
	return strings.Join([]string{string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash}, "\x00")
}
