package tablestore

import (
	"testing"

	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

func TestContract_MemoryTableStore(t *testing.T) {
	contracttest.RunTableStore(t, func(t *testing.T) (tablestore.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
