package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	historyTable       = "assistido_status_history"
	historyReasonCol   = "motivo"
	professionalsTable = "professionals"
)

// linkColumnCandidates lists the professional->user link columns in order
// of preference.
var linkColumnCandidates = []string{"user_id_int", "user_id"}

// integerTypes are the information_schema data types accepted for the link column.
var integerTypes = map[string]bool{"integer": true, "bigint": true, "smallint": true}

// ErrUnsupportedLinkColumn means professionals has a link column, but its
// type cannot hold a users.id (BIGINT), e.g. a legacy UUID user_id.
var ErrUnsupportedLinkColumn = errors.New("unsupported professional link column")

// Capabilities exposes the optional schema features the workflows adapt to.
type Capabilities interface {
	HasReasonColumn(ctx context.Context) (bool, error)
	LinkColumnName(ctx context.Context) (string, error)
}

// ColumnLister returns column name -> data type for a table.
type ColumnLister interface {
	Columns(ctx context.Context, table string) (map[string]string, error)
}

// SchemaProbe resolves Capabilities once per process. A failed probe is not
// memoized, so the next call retries.
type SchemaProbe struct {
	lister ColumnLister

	mu         sync.Mutex
	hasReason  *bool
	linkColumn string
}

// NewSchemaProbe creates a probe backed by information_schema.
func NewSchemaProbe(pool *pgxpool.Pool, schema string) *SchemaProbe {
	return NewSchemaProbeWithLister(&infoSchemaLister{pool: pool, schema: schema})
}

// NewSchemaProbeWithLister creates a probe over an arbitrary lister.
func NewSchemaProbeWithLister(lister ColumnLister) *SchemaProbe {
	return &SchemaProbe{lister: lister}
}

func (p *SchemaProbe) HasReasonColumn(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasReason != nil {
		return *p.hasReason, nil
	}

	cols, err := p.lister.Columns(ctx, historyTable)
	if err != nil {
		return false, fmt.Errorf("probe %s columns: %w", historyTable, err)
	}
	_, ok := cols[historyReasonCol]
	p.hasReason = &ok
	return ok, nil
}

func (p *SchemaProbe) LinkColumnName(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.linkColumn != "" {
		return p.linkColumn, nil
	}

	cols, err := p.lister.Columns(ctx, professionalsTable)
	if err != nil {
		return "", fmt.Errorf("probe %s columns: %w", professionalsTable, err)
	}
	for _, name := range linkColumnCandidates {
		if integerTypes[cols[name]] {
			p.linkColumn = name
			return name, nil
		}
	}
	for _, name := range linkColumnCandidates {
		if typ, ok := cols[name]; ok {
			return "", fmt.Errorf("%w: %s.%s is %s, users are keyed by bigint (add an integer user_id_int column)",
				ErrUnsupportedLinkColumn, professionalsTable, name, typ)
		}
	}
	return "", fmt.Errorf("%s has no user link column (tried %v)", professionalsTable, linkColumnCandidates)
}

type infoSchemaLister struct {
	pool   *pgxpool.Pool
	schema string
}

func (l *infoSchemaLister) Columns(ctx context.Context, table string) (map[string]string, error) {
	rows, err := Conn(ctx, l.pool).Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2`, l.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		cols[name] = dataType
	}
	return cols, rows.Err()
}
