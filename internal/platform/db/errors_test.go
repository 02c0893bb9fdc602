package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("lock patient: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(fmt.Errorf("other")) {
		t.Error("unexpected match")
	}
}

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{
		Code:           SQLStateUniqueViolation,
		ConstraintName: "uq_link_requests_pending_user",
	})
	name, ok := UniqueViolation(err)
	if !ok {
		t.Fatal("expected unique violation")
	}
	if name != "uq_link_requests_pending_user" {
		t.Errorf("unexpected constraint %q", name)
	}

	if _, ok := UniqueViolation(&pgconn.PgError{Code: "23503"}); ok {
		t.Error("foreign key violation must not be reported as unique")
	}
}

func TestIsSchemaLag(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{SQLStateUndefinedColumn, true},
		{SQLStateUndefinedTable, true},
		{SQLStateUniqueViolation, false},
		{"08006", false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("read settings: %w", &pgconn.PgError{Code: tt.code})
		if got := IsSchemaLag(err); got != tt.want {
			t.Errorf("IsSchemaLag(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
	if IsSchemaLag(fmt.Errorf("plain")) {
		t.Error("plain errors are not schema lag")
	}
}
