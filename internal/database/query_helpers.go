// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryBuilder assembles a WHERE clause from optional filters.
type QueryBuilder struct {
	baseQuery string
	args      []interface{}
	filters   []string
}

// NewQueryBuilder starts from a query without a WHERE clause.
func NewQueryBuilder(baseQuery string) *QueryBuilder {
	return &QueryBuilder{
		baseQuery: baseQuery,
		args:      make([]interface{}, 0, 8),
		filters:   make([]string, 0, 4),
	}
}

// Where adds a condition with its arguments.
func (qb *QueryBuilder) Where(condition string, args ...interface{}) *QueryBuilder {
	qb.filters = append(qb.filters, condition)
	qb.args = append(qb.args, args...)
	return qb
}

// WhereIn adds "column IN (?, ...)". An empty values list adds nothing.
func (qb *QueryBuilder) WhereIn(column string, values []string) *QueryBuilder {
	if len(values) == 0 {
		return qb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		qb.args = append(qb.args, v)
	}
	qb.filters = append(qb.filters, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	return qb
}

// Build returns the final query with suffix (ORDER BY, LIMIT) and args.
func (qb *QueryBuilder) Build(suffix string, suffixArgs ...interface{}) (string, []interface{}) {
	query := qb.baseQuery
	if len(qb.filters) > 0 {
		query += " WHERE " + strings.Join(qb.filters, " AND ")
	}
	if suffix != "" {
		query += " " + suffix
	}
	return query, append(qb.args, suffixArgs...)
}

// ScanFunc scans the current row.
type ScanFunc[T any] func(*sql.Rows) (T, error)

// QueryAndScan runs query and scans every row.
func QueryAndScan[T any](ctx context.Context, db *DB, query string, args []interface{}, scan ScanFunc[T]) ([]T, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "rows")

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// QueryRow runs a single-row query with the default timeout.
func (db *DB) QueryRow(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return db.conn.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// sqlString quotes s as a SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent quotes an identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
