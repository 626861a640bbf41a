// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package retention

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tomtom215/churnwatch/internal/database"
)

// ExportHeader is the column order of Export.
var ExportHeader = []string{"customer_id", "cluster_name", "churn_risk", "clv_12m", "priority_score", "recommended_action"}

// Export writes the priority list selected by q to w as CSV, without a row
// limit. Missing values are written as empty fields. It returns the number
// of customers written.
func (s *Service) Export(ctx context.Context, q Query, w io.Writer) (n int, err error) {
	defer track("export", time.Now(), &err)

	if s.store.Mode() != database.ModePolicy {
		return 0, fmt.Errorf("retention policy: %w", ErrNotAvailable)
	}
	qb, _, err := s.priorityQuery(ctx, q)
	if err != nil {
		return 0, err
	}
	query, args := qb.Build(priorityOrder)

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	_, err = database.QueryAndScan(ctx, s.store, query, args, func(rows *sql.Rows) (struct{}, error) {
		c, err := scanCustomer(rows)
		if err != nil {
			return struct{}{}, err
		}
		n++
		return struct{}{}, cw.Write(customerRecord(c))
	})
	if err != nil {
		return n, fmt.Errorf("failed to export priority list: %w", err)
	}

	cw.Flush()
	return n, cw.Error()
}

func customerRecord(c Customer) []string {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	num := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return []string{c.CustomerID, str(c.Segment), num(c.ChurnRisk), num(c.CLV), num(c.PriorityScore), str(c.Action)}
}
