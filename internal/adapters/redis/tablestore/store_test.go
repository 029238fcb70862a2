package tablestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

func TestContract_RedisTableStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis contract tests")
	}
	client := NewClient(addr, os.Getenv("REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = client.Close() })

	contracttest.RunTableStore(t, func(t *testing.T) (tablestore.Store, func()) {
		t.Helper()
		prefix := fmt.Sprintf("terreiro-test-%d", time.Now().UnixNano())
		s := NewStore(client, prefix)
		if !s.Healthy(context.Background()) {
			t.Fatalf("redis at %s is not reachable", addr)
		}
		return s, func() {
			ctx := context.Background()
			for _, tbl := range tablestore.Tables {
				_ = client.Del(ctx, s.key(tbl)).Err()
			}
		}
	})
}

func TestStore_Key(t *testing.T) {
	t.Parallel()

	s := NewStore(nil, "")
	if got := s.key(tablestore.TableCeremonyHistory); got != "terreiro:ceremony_history" {
		t.Fatalf("key=%q", got)
	}
	if _, err := s.LoadAll(context.Background(), tablestore.TableMembers); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
