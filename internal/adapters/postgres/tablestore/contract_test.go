package tablestore

import (
	"context"
	"testing"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

func TestContract_PostgresTableStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunTableStore(t, func(t *testing.T) (tablestore.Store, func()) {
		t.Helper()
		s := NewStore(pool)
		return s, func() {
			for _, tbl := range tablestore.Tables {
				_ = s.ReplaceAll(context.Background(), tbl, nil)
			}
		}
	})
}
