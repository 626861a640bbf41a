// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/priority"
)

type sourceRow struct {
	id       string
	segment  sql.NullString
	clv      sql.NullFloat64
	risk     float64
	supplied sql.NullFloat64
}

// Rebuild regenerates the retention policy from churn risk and CLV, replacing
// the retention_policy table as a whole. Customers without churn risk are
// skipped. Those with neither CLV nor a previous priority score are kept with
// a NULL priority and sort last.
func (s *Service) Rebuild(ctx context.Context) (res RebuildResult, err error) {
	start := time.Now()
	defer track("rebuild", start, &err)

	query, err := s.rebuildSource()
	if err != nil {
		return RebuildResult{}, err
	}
	src, err := database.QueryAndScan(ctx, s.store, query, nil, func(rows *sql.Rows) (sourceRow, error) {
		var r sourceRow
		err := rows.Scan(&r.id, &r.segment, &r.clv, &r.risk, &r.supplied)
		return r, err
	})
	if err != nil {
		return RebuildResult{}, fmt.Errorf("failed to read churn risk: %w", err)
	}
	if len(src) == 0 {
		return RebuildResult{}, fmt.Errorf("no customers with churn risk: %w", ErrNotAvailable)
	}

	candidates := make([]priority.Candidate, len(src))
	byID := make(map[string]sourceRow, len(src))
	for i, r := range src {
		candidates[i] = priority.Candidate{
			CustomerID:  r.id,
			Probability: r.risk,
			CLV:         nullFloat(r.clv),
			Supplied:    nullFloat(r.supplied),
		}
		byID[r.id] = r
	}
	ranked := priority.Rank(candidates)

	res = RebuildResult{
		Tiers:      make(map[string]int64, len(policy.Tiers())),
		Thresholds: s.evaluator.Thresholds(),
	}
	for _, t := range policy.Tiers() {
		res.Tiers[string(t)] = 0
	}

	rows := make([]database.PolicyRow, 0, len(src))
	seen := make(map[string]struct{}, len(ranked))
	add := func(r sourceRow, score sql.NullFloat64) {
		d := s.evaluator.Evaluate(r.risk)
		res.Tiers[string(d.Tier)]++
		rows = append(rows, database.PolicyRow{
			CustomerID:     r.id,
			Segment:        r.segment,
			CLV:            r.clv,
			ChurnRisk:      r.risk,
			PriorityScore:  score,
			RiskLevel:      string(d.Tier),
			RecommendedAct: string(d.Action),
		})
	}
	for _, rk := range ranked {
		add(byID[rk.CustomerID], sql.NullFloat64{Float64: rk.Score, Valid: true})
		seen[rk.CustomerID] = struct{}{}
	}
	res.Scored = int64(len(rows))
	for _, r := range src {
		if _, ok := seen[r.id]; !ok {
			add(r, sql.NullFloat64{})
		}
	}

	info, err := s.store.ReplaceRetentionPolicy(ctx, rows)
	if err != nil {
		return RebuildResult{}, err
	}
	if s.cache != nil {
		s.cache.Clear()
	}
	metrics.RetentionTableRows.WithLabelValues(database.TableRetentionPolicy).Set(float64(info.Rows))

	if s.opts.PersistPath != "" {
		if err := s.store.ExportTable(ctx, database.TableRetentionPolicy, s.opts.PersistPath); err != nil {
			return RebuildResult{}, fmt.Errorf("retention policy rebuilt but not persisted: %w", err)
		}
		res.PersistTo = s.opts.PersistPath
	}

	res.Rows = info.Rows
	res.Duration = time.Since(start)

	logging.Info().
		Int64("rows", res.Rows).
		Int64("scored", res.Scored).
		Interface("tiers", res.Tiers).
		Dur("duration", res.Duration).
		Msg("Retention policy rebuilt")
	return res, nil
}

// rebuildSource picks the churn risk source. The churn table wins over an
// existing policy so a rebuild never feeds on its own output when fresher
// scores exist.
func (s *Service) rebuildSource() (string, error) {
	churn, ok := s.store.Table(database.TableChurnRisk)
	if !ok || !churn.Has("customer_id") || !churn.Has("churn_risk") {
		if !s.hasChurn() {
			return "", fmt.Errorf("churn risk: %w", ErrNotAvailable)
		}
		return `SELECT customer_id, segment, clv_12m, churn_risk, priority_score
			FROM ` + database.CustomerView + `
			WHERE churn_risk IS NOT NULL`, nil
	}

	segment, clv := "CAST(NULL AS VARCHAR)", "CAST(NULL AS DOUBLE)"
	from := database.TableChurnRisk + " k"

	// Segment and CLV come from the customers table when it is keyed by id,
	// otherwise from the churn file itself.
	info, alias := churn, "k"
	if cust, ok := s.store.Table(database.TableCustomers); ok && cust.Has("customer_id") {
		info, alias = cust, "c"
		from += " LEFT JOIN " + database.TableCustomers +
			" c ON CAST(k.customer_id AS VARCHAR) = CAST(c.customer_id AS VARCHAR)"
	}
	switch {
	case info.Has("cluster_name"):
		segment = "CAST(" + alias + ".cluster_name AS VARCHAR)"
	case info.Has("cluster"):
		segment = "CAST(" + alias + ".cluster AS VARCHAR)"
	}
	if info.Has("clv_12m") {
		clv = "CAST(" + alias + ".clv_12m AS DOUBLE)"
	}

	return fmt.Sprintf(`SELECT CAST(k.customer_id AS VARCHAR), %s, %s, CAST(k.churn_risk AS DOUBLE), CAST(NULL AS DOUBLE)
		FROM %s
		WHERE k.customer_id IS NOT NULL AND k.churn_risk IS NOT NULL
		ORDER BY 1`, segment, clv, from), nil
}
