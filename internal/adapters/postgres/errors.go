package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const UndefinedTableCode = "42P01"

// ErrSchemaMissing is returned when a mirrored table has not been created yet.
var ErrSchemaMissing = errors.New("postgres schema missing; run migrations")

// AsPgError unwraps a server-side postgres error.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsUndefinedTable reports whether err is postgres' "relation does not exist".
func IsUndefinedTable(err error) bool {
	pe, ok := AsPgError(err)
	return ok && pe.Code == UndefinedTableCode
}
