package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier runs catalog queries. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// userTables selects ordinary and partitioned tables outside system schemas,
// optionally limited to the schemas in $1 and ordered by that list.
const userTables = `
	SELECT c.oid, n.nspname, c.relname
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p')
	  AND NOT c.relispartition
	  AND n.nspname <> 'information_schema'
	  AND n.nspname NOT LIKE 'pg\_%'
	  AND (cardinality($1::text[]) = 0 OR n.nspname = ANY($1::text[]))`

var tablesQuery = `
WITH t AS (` + userTables + `)
SELECT t.oid::int8, t.nspname::text, t.relname::text
FROM t
ORDER BY array_position($1::text[], t.nspname::text), t.nspname, t.oid`

var columnsQuery = `
WITH t AS (` + userTables + `)
SELECT a.attrelid::int8, a.attnum, a.attname::text, pg_catalog.format_type(a.atttypid, a.atttypmod)
FROM pg_catalog.pg_attribute a
JOIN t ON t.oid = a.attrelid
WHERE a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attrelid, a.attnum`

var constraintsQuery = `
WITH t AS (` + userTables + `)
SELECT con.conrelid::int8, con.contype::text, con.conname::text, con.conkey::int2[],
       COALESCE(rn.nspname::text, ''), COALESCE(rc.relname::text, '')
FROM pg_catalog.pg_constraint con
JOIN t ON t.oid = con.conrelid
LEFT JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
LEFT JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
WHERE con.contype IN ('p', 'f')
ORDER BY con.conrelid, con.contype DESC, con.conkey[1], con.conname`

type tableRow struct {
	OID    int64
	Schema string
	Name   string
}

type columnRow struct {
	TableOID int64
	Num      int16
	Name     string
	Type     string
}

type constraintRow struct {
	TableOID  int64
	Kind      string // "p" primary key, "f" foreign key
	Name      string
	Columns   []int16
	RefSchema string
	RefTable  string
}

// catalog is the raw catalog content of the introspected tables.
type catalog struct {
	tables      []tableRow
	columns     []columnRow
	constraints []constraintRow
}

func readCatalog(ctx context.Context, q Querier, schemas []string) (*catalog, error) {
	if schemas == nil {
		schemas = []string{}
	}

	tables, err := collect(ctx, q, tablesQuery, schemas, pgx.RowToStructByPos[tableRow])
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	columns, err := collect(ctx, q, columnsQuery, schemas, pgx.RowToStructByPos[columnRow])
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	constraints, err := collect(ctx, q, constraintsQuery, schemas, pgx.RowToStructByPos[constraintRow])
	if err != nil {
		return nil, fmt.Errorf("failed to list constraints: %w", err)
	}

	return &catalog{tables: tables, columns: columns, constraints: constraints}, nil
}

func collect[T any](ctx context.Context, q Querier, sql string, schemas []string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := q.Query(ctx, sql, schemas)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}
