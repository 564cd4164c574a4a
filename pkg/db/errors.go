package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgCheckViolation = "23514"

// IsCheckViolation reports whether err was raised by a CHECK constraint, on
// Postgres (SQLSTATE 23514) or SQLite.
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCheckViolation
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}
