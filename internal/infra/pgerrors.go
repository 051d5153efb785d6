package infra

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories branch on.
const (
	pgUndefinedTable       = "42P01"
	pgInvalidTextRepresent = "22P02"
)

// IsNoRows reports whether err is pgx's empty-result error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUndefinedTable reports whether err comes from a missing relation.
func IsUndefinedTable(err error) bool {
	return pgCode(err) == pgUndefinedTable
}

// IsInvalidText reports whether a parameter failed to parse, such as a
// malformed uuid.
func IsInvalidText(err error) bool {
	return pgCode(err) == pgInvalidTextRepresent
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
