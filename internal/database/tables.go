// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
)

// Table names.
const (
	TableCustomers       = "customers"
	TableCLVBySegment    = "clv_by_segment"
	TableChurnRisk       = "churn_risk"
	TableRetentionPolicy = "retention_policy"

	// CustomerView joins whatever is loaded into one fixed-column view:
	// customer_id, segment, clv_12m, churn_risk, priority_score, recommended_action.
	CustomerView = "customer_view"
)

var allTables = []string{TableChurnRisk, TableCLVBySegment, TableCustomers, TableRetentionPolicy}

// Mode describes how much retention data is available.
type Mode string

const (
	// ModePolicy: a retention policy table with priority scores and actions.
	ModePolicy Mode = "retention_policy"
	// ModeChurn: churn risk per customer without a policy.
	ModeChurn Mode = "churn_risk"
	// ModeSegments: customer segments only.
	ModeSegments Mode = "segments"
	// ModeNone: nothing was loaded.
	ModeNone Mode = "none"
)

// TableInfo describes a loaded table.
type TableInfo struct {
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	Rows     int64     `json:"rows"`
	Columns  []string  `json:"columns"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Has reports whether the table has column.
func (t TableInfo) Has(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Load (re)ingests every CSV from the data directory. Missing or unreadable
// files are skipped and their tables dropped, so a reload reflects the directory as it
// is now. Customer rows come from the CLV-enriched segments file when present,
// otherwise from the plain segments file.
func (db *DB) Load(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	sources := map[string][]string{
		TableCustomers:       {db.cfg.SegmentsWithCLVFile, db.cfg.SegmentsFile},
		TableCLVBySegment:    {db.cfg.CLVBySegmentFile},
		TableChurnRisk:       {db.cfg.ChurnRiskFile},
		TableRetentionPolicy: {db.cfg.RetentionPolicyFile},
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.ExecContext(ctx, "DROP VIEW IF EXISTS "+CustomerView); err != nil {
		return fmt.Errorf("failed to drop %s: %w", CustomerView, err)
	}

	loaded := make(map[string]TableInfo, len(sources))
	for _, table := range allTables {
		path := firstExisting(db.cfg.Dir, sources[table])
		if path == "" {
			if err := db.dropTable(ctx, table); err != nil {
				return err
			}
			logging.Warn().Str("table", table).Str("dir", db.cfg.Dir).Msg("Retention data file not found, skipping")
			continue
		}

		info, err := db.loadCSV(ctx, table, path)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			if err := db.dropTable(ctx, table); err != nil {
				return err
			}
			logging.Warn().Err(err).Str("table", table).Str("path", path).Msg("Retention data file unreadable, skipping")
			continue
		}
		loaded[table] = info
	}

	if err := db.applyTables(ctx, loaded); err != nil {
		return err
	}
	logTables(db.tablesLocked(), db.mode)
	return nil
}

// dropTable removes table and zeroes its row gauge. Caller holds db.mu.
func (db *DB) dropTable(ctx context.Context, table string) error {
	if _, err := db.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}
	metrics.RetentionTableRows.WithLabelValues(table).Set(0)
	return nil
}

func firstExisting(dir string, names []string) string {
	for _, name := range names {
		if name == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

func (db *DB) loadCSV(ctx context.Context, table, path string) (TableInfo, error) {
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header = true)",
		quoteIdent(table), sqlString(path))
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return TableInfo{}, fmt.Errorf("failed to load %s from %s: %w", table, path, err)
	}
	info, err := db.describe(ctx, table)
	if err != nil {
		return TableInfo{}, err
	}
	info.Source = path
	return info, nil
}

func (db *DB) describe(ctx context.Context, table string) (TableInfo, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position", table)
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer closeWithLog(rows, "rows")

	info := TableInfo{Name: table, LoadedAt: time.Now().UTC()}
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return TableInfo{}, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		info.Columns = append(info.Columns, strings.ToLower(col))
	}
	if err := rows.Err(); err != nil {
		return TableInfo{}, fmt.Errorf("failed to describe %s: %w", table, err)
	}

	if err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(table)).Scan(&info.Rows); err != nil {
		return TableInfo{}, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return info, nil
}

// applyTables installs loaded table metadata and rebuilds the customer view.
// Caller holds db.mu.
func (db *DB) applyTables(ctx context.Context, loaded map[string]TableInfo) error {
	viewSQL, mode := buildCustomerView(loaded)
	if viewSQL == "" {
		if _, err := db.conn.ExecContext(ctx, "DROP VIEW IF EXISTS "+CustomerView); err != nil {
			return fmt.Errorf("failed to drop %s: %w", CustomerView, err)
		}
	} else if _, err := db.conn.ExecContext(ctx, viewSQL); err != nil {
		return fmt.Errorf("failed to create %s: %w", CustomerView, err)
	}

	for _, t := range loaded {
		metrics.RetentionTableRows.WithLabelValues(t.Name).Set(float64(t.Rows))
	}
	db.tables = loaded
	db.mode = mode
	db.dataVersion++
	return nil
}

func (db *DB) tablesLocked() []TableInfo {
	out := make([]TableInfo, 0, len(db.tables))
	for _, name := range allTables {
		if t, ok := db.tables[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// buildCustomerView returns the CREATE VIEW statement and the resulting mode.
//
// The retention policy, when present, supplies churn risk, priority and
// action. Otherwise churn risk comes from the churn table. Customers without
// a match keep NULLs (left join), matching how the upstream files merge.
func buildCustomerView(t map[string]TableInfo) (string, Mode) {
	customers, hasCustomers := t[TableCustomers]
	policy, hasPolicy := t[TableRetentionPolicy]
	churn, hasChurn := t[TableChurnRisk]

	hasPolicy = hasPolicy && policy.Has("customer_id")
	hasChurn = hasChurn && churn.Has("customer_id") && churn.Has("churn_risk")

	col := func(alias string, info TableInfo, name, typ string) string {
		if info.Has(name) {
			return fmt.Sprintf("CAST(%s.%s AS %s)", alias, quoteIdent(name), typ)
		}
		return "CAST(NULL AS " + typ + ")"
	}
	segment := func(alias string, info TableInfo) string {
		switch {
		case info.Has("cluster_name"):
			return col(alias, info, "cluster_name", "VARCHAR")
		case info.Has("cluster"):
			return col(alias, info, "cluster", "VARCHAR")
		default:
			return "CAST(NULL AS VARCHAR)"
		}
	}

	var (
		from               string
		seg, clv           string
		risk, prio, action string
		mode               Mode
	)

	switch {
	case hasCustomers && customers.Has("customer_id"):
		from = "customers c"
		seg = segment("c", customers)
		clv = col("c", customers, "clv_12m", "DOUBLE")
		switch {
		case hasPolicy:
			from += " LEFT JOIN retention_policy r ON CAST(c.customer_id AS VARCHAR) = CAST(r.customer_id AS VARCHAR)"
			risk = col("r", policy, "churn_risk", "DOUBLE")
			prio = col("r", policy, "priority_score", "DOUBLE")
			action = col("r", policy, "recommended_action", "VARCHAR")
			mode = ModePolicy
		case hasChurn:
			from += " LEFT JOIN churn_risk k ON CAST(c.customer_id AS VARCHAR) = CAST(k.customer_id AS VARCHAR)"
			risk = col("k", churn, "churn_risk", "DOUBLE")
			prio = "CAST(NULL AS DOUBLE)"
			action = "CAST(NULL AS VARCHAR)"
			mode = ModeChurn
		default:
			risk = col("c", customers, "churn_risk", "DOUBLE")
			prio = col("c", customers, "priority_score", "DOUBLE")
			action = col("c", customers, "recommended_action", "VARCHAR")
			mode = ModeSegments
			if customers.Has("churn_risk") {
				mode = ModeChurn
			}
		}
	case hasPolicy:
		from = "retention_policy r"
		seg = segment("r", policy)
		clv = col("r", policy, "clv_12m", "DOUBLE")
		risk = col("r", policy, "churn_risk", "DOUBLE")
		prio = col("r", policy, "priority_score", "DOUBLE")
		action = col("r", policy, "recommended_action", "VARCHAR")
		mode = ModePolicy
	default:
		return "", ModeNone
	}

	idAlias := strings.SplitN(from, " ", 3)[1]
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS
SELECT
	CAST(%s.customer_id AS VARCHAR) AS customer_id,
	%s AS segment,
	%s AS clv_12m,
	%s AS churn_risk,
	%s AS priority_score,
	%s AS recommended_action
FROM %s
WHERE %s.customer_id IS NOT NULL`,
		CustomerView, idAlias, seg, clv, risk, prio, action, from, idAlias), mode
}

// PolicyRow is one row of a regenerated retention policy.
type PolicyRow struct {
	CustomerID     string
	Segment        sql.NullString
	CLV            sql.NullFloat64
	ChurnRisk      float64
	PriorityScore  sql.NullFloat64
	RiskLevel      string
	RecommendedAct string
}

// ReplaceRetentionPolicy swaps the retention policy table for rows in one
// transaction. The previous table is never updated in place.
func (db *DB) ReplaceRetentionPolicy(ctx context.Context, rows []PolicyRow) (TableInfo, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const staging = "retention_policy_next"
	if _, err := tx.ExecContext(ctx, `CREATE OR REPLACE TABLE `+staging+` (
		customer_id VARCHAR NOT NULL,
		cluster_name VARCHAR,
		clv_12m DOUBLE,
		churn_risk DOUBLE NOT NULL,
		priority_score DOUBLE,
		churn_risk_level VARCHAR NOT NULL,
		recommended_action VARCHAR NOT NULL
	)`); err != nil {
		return TableInfo{}, fmt.Errorf("failed to create staging table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+staging+" VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeWithLog(stmt, "statement")

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.CustomerID, r.Segment, r.CLV, r.ChurnRisk, r.PriorityScore, r.RiskLevel, r.RecommendedAct); err != nil {
			return TableInfo{}, fmt.Errorf("failed to insert policy row %s: %w", r.CustomerID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "CREATE OR REPLACE TABLE retention_policy AS SELECT * FROM "+staging); err != nil {
		return TableInfo{}, fmt.Errorf("failed to replace retention_policy: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+staging); err != nil {
		return TableInfo{}, fmt.Errorf("failed to drop staging table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return TableInfo{}, fmt.Errorf("failed to commit retention_policy: %w", err)
	}

	info, err := db.describe(ctx, TableRetentionPolicy)
	if err != nil {
		return TableInfo{}, err
	}
	info.Source = "rebuild"

	loaded := make(map[string]TableInfo, len(db.tables)+1)
	for k, v := range db.tables {
		loaded[k] = v
	}
	loaded[TableRetentionPolicy] = info
	if err := db.applyTables(ctx, loaded); err != nil {
		return TableInfo{}, err
	}
	return info, nil
}

// ExportTable writes a table or view to path as CSV with a header.
func (db *DB) ExportTable(ctx context.Context, table, path string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	db.mu.RLock()
	_, ok := db.tables[table]
	db.mu.RUnlock()
	if !ok && table != CustomerView {
		return fmt.Errorf("%s: %w", table, ErrNotAvailable)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	query := fmt.Sprintf("COPY (SELECT * FROM %s) TO %s (HEADER, DELIMITER ',')", quoteIdent(table), sqlString(path))
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("export of %s timed out: %w", table, err)
		}
		return fmt.Errorf("failed to export %s: %w", table, err)
	}
	return nil
}
