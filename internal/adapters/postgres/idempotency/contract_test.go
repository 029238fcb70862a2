package idempotency

import (
	"testing"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/testutil"
	idempotencyport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/idempotency"
)

func TestContract_PostgresIdempotencyStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(pool, "test-realm", 0), nil
	})
}

func TestStore_ExpiredRecordsReadAsMissing(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	s := NewStore(pool, "test-realm", time.Hour)
	s.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }

	ctx := t.Context()
	fp := idempotencyport.Fingerprint{Key: "expiring", Subject: "s", Method: "POST", Route: "/members"}
	old := idempotencyport.Record{StatusCode: 201, ContentType: "application/json", Body: []byte(`{}`), CreatedAt: s.now().Add(-2 * time.Hour)}
	if err := s.Put(ctx, fp, old); err != nil {
		t.Fatalf("Put err=%v", err)
	}
	if _, ok, err := s.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get ok=%v err=%v, want expired", ok, err)
	}
	n, err := s.DeleteExpired(ctx)
	if err != nil || n < 1 {
		t.Fatalf("DeleteExpired n=%d err=%v", n, err)
	}
}
