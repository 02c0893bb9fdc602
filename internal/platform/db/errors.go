package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the services react to.
const (
	SQLStateUniqueViolation = "23505"
	SQLStateUndefinedColumn = "42703"
	SQLStateUndefinedTable  = "42P01"
)

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// PgError extracts the *pgconn.PgError in err's chain.
func PgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// UniqueViolation returns the violated constraint name when err is a
// unique_violation.
func UniqueViolation(err error) (string, bool) {
	pgErr, ok := PgError(err)
	if !ok || pgErr.Code != SQLStateUniqueViolation {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// IsSchemaLag reports whether err was caused by a column or table that does
// not exist yet, which happens while migrations are still rolling out.
func IsSchemaLag(err error) bool {
	pgErr, ok := PgError(err)
	if !ok {
		return false
	}
	return pgErr.Code == SQLStateUndefinedColumn || pgErr.Code == SQLStateUndefinedTable
}
