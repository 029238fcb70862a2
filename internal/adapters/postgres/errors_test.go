package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUndefinedTable(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("load members: %w", &pgconn.PgError{Code: UndefinedTableCode})
	if !IsUndefinedTable(wrapped) {
		t.Fatalf("IsUndefinedTable(%v)=false", wrapped)
	}
	if IsUndefinedTable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation reported as undefined table")
	}
	if IsUndefinedTable(errors.New("boom")) {
		t.Fatalf("plain error reported as undefined table")
	}
}
