// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package retention

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/churnwatch/internal/cache"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/metrics"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/priority"
)

// ErrNotAvailable is returned when the loaded data cannot answer a query,
// for example a priority list without a retention policy table.
var ErrNotAvailable = database.ErrNotAvailable

// ErrInvalidQuery is returned for a query that cannot be answered as asked,
// such as an action filter without actions.
var ErrInvalidQuery = errors.New("invalid retention query")

// Options carries the retention settings from configuration.
type Options struct {
	// HighRiskCutoff counts customers with churn_risk strictly above it.
	HighRiskCutoff float64
	// AtRiskThreshold is the default minimum churn risk for AtRisk.
	AtRiskThreshold float64
	// PriorityQuantile picks the default minimum priority score.
	PriorityQuantile float64
	// ListLimit is the default row cap for lists.
	ListLimit int
	// PersistPath, when set, receives a CSV copy of every rebuilt policy.
	PersistPath string
}

// DefaultOptions matches the stock dashboard.
func DefaultOptions() Options {
	return Options{
		HighRiskCutoff:   0.7,
		AtRiskThreshold:  0.5,
		PriorityQuantile: 0.9,
		ListLimit:        100,
	}
}

// OptionsFromConfig maps the retention_policy and data sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		HighRiskCutoff:   cfg.RetentionPolicy.HighRiskCountThreshold,
		AtRiskThreshold:  cfg.RetentionPolicy.AtRiskThreshold,
		PriorityQuantile: cfg.RetentionPolicy.PriorityQuantile,
		ListLimit:        cfg.RetentionPolicy.ListLimit,
	}
	if cfg.Data.PersistRebuild {
		opts.PersistPath = cfg.Data.RetentionPolicyPath()
	}
	return opts
}

// Service answers retention questions from the loaded tables.
type Service struct {
	store     *database.DB
	evaluator *policy.Evaluator
	opts      Options
	cache     *cache.Cache
}

// NewService wires a store and evaluator. c may be nil to disable caching.
func NewService(store *database.DB, evaluator *policy.Evaluator, opts Options, c *cache.Cache) *Service {
	if opts.ListLimit <= 0 {
		opts.ListLimit = DefaultOptions().ListLimit
	}
	return &Service{store: store, evaluator: evaluator, opts: opts, cache: c}
}

// Mode reports which retention data is loaded.
func (s *Service) Mode() database.Mode { return s.store.Mode() }

// Options returns the configured defaults.
func (s *Service) Options() Options { return s.opts }

// Ping checks that the store still answers queries.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("retention store unreachable (%v): %w", err, ErrNotAvailable)
	}
	return nil
}

func track(op string, start time.Time, err *error) {
	metrics.RecordRetentionQuery(op, time.Since(start), *err)
}

// cached runs load unless a result for (op, params) exists at the current data version.
func cached[T any](s *Service, op string, params interface{}, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}
	key := cache.GenerateKey(op, struct {
		Version int64
		Params  interface{}
	}{s.store.DataVersion(), params})
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v)
	return v, nil
}

func (s *Service) hasCLV() bool {
	if t, ok := s.store.Table(database.TableCustomers); ok && t.Has("customer_id") {
		return t.Has("clv_12m")
	}
	t, ok := s.store.Table(database.TableRetentionPolicy)
	return ok && t.Has("clv_12m")
}

func (s *Service) hasChurn() bool {
	m := s.store.Mode()
	return m == database.ModePolicy || m == database.ModeChurn
}

func (s *Service) hasSegment() bool {
	for _, name := range []string{database.TableCustomers, database.TableRetentionPolicy} {
		if t, ok := s.store.Table(name); ok && (t.Has("cluster_name") || t.Has("cluster")) {
			return true
		}
	}
	return false
}

// Overview returns the headline numbers.
func (s *Service) Overview(ctx context.Context) (ov Overview, err error) {
	defer track("overview", time.Now(), &err)

	if s.store.Mode() == database.ModeNone {
		return Overview{}, fmt.Errorf("customer data: %w", ErrNotAvailable)
	}
	return cached(s, "overview", nil, func() (Overview, error) {
		ov := Overview{Mode: s.store.Mode(), HighRiskCutoff: s.opts.HighRiskCutoff}

		var (
			segments int64
			totalCLV sql.NullFloat64
			avgChurn sql.NullFloat64
			highRisk sql.NullInt64
		)
		query := `SELECT count(*), count(DISTINCT segment), sum(clv_12m), avg(churn_risk),
			count(*) FILTER (WHERE churn_risk > ?)
			FROM ` + database.CustomerView
		if err := s.store.QueryRow(ctx, query, []interface{}{s.opts.HighRiskCutoff},
			&ov.TotalCustomers, &segments, &totalCLV, &avgChurn, &highRisk); err != nil {
			return Overview{}, fmt.Errorf("failed to compute overview: %w", err)
		}

		if s.hasSegment() {
			ov.Segments = segments
		}
		if s.hasCLV() && totalCLV.Valid {
			ov.TotalCLV = &totalCLV.Float64
		}
		if s.hasChurn() {
			if avgChurn.Valid {
				ov.AvgChurnRisk = &avgChurn.Float64
			}
			if highRisk.Valid {
				ov.HighRiskCount = &highRisk.Int64
			}
		}
		return ov, nil
	})
}

// SegmentValue returns CLV by segment from clv_by_segment.csv, or aggregated
// from customers when that file is absent.
func (s *Service) SegmentValue(ctx context.Context) (out []SegmentValue, err error) {
	defer track("segment_value", time.Now(), &err)

	return cached(s, "segment_value", nil, func() ([]SegmentValue, error) {
		if t, ok := s.store.Table(database.TableCLVBySegment); ok && t.Rows > 0 {
			return s.segmentValueFromTable(ctx, t)
		}
		if !s.hasSegment() {
			return nil, fmt.Errorf("segment data: %w", ErrNotAvailable)
		}
		return s.segmentValueFromCustomers(ctx)
	})
}

func (s *Service) segmentValueFromTable(ctx context.Context, t database.TableInfo) ([]SegmentValue, error) {
	segCol := "cluster_name"
	if !t.Has(segCol) {
		segCol = "cluster"
		if !t.Has(segCol) {
			return nil, fmt.Errorf("clv_by_segment has no segment column: %w", ErrNotAvailable)
		}
	}
	colOrNull := func(name, typ string) string {
		if t.Has(name) {
			return "CAST(" + name + " AS " + typ + ")"
		}
		return "CAST(NULL AS " + typ + ")"
	}

	query := fmt.Sprintf(`SELECT CAST(%s AS VARCHAR), %s, round(%s, 2), round(%s, 2) FROM %s ORDER BY 4 DESC NULLS LAST, 1`,
		segCol, colOrNull("customers", "BIGINT"), colOrNull("avg_clv", "DOUBLE"), colOrNull("total_clv", "DOUBLE"),
		database.TableCLVBySegment)

	return database.QueryAndScan(ctx, s.store, query, nil, scanSegmentValue)
}

func (s *Service) segmentValueFromCustomers(ctx context.Context) ([]SegmentValue, error) {
	query := `SELECT segment, count(*), round(avg(clv_12m), 2), round(sum(clv_12m), 2)
		FROM ` + database.CustomerView + `
		WHERE segment IS NOT NULL
		GROUP BY segment
		ORDER BY 4 DESC NULLS LAST, 2 DESC, 1`
	return database.QueryAndScan(ctx, s.store, query, nil, scanSegmentValue)
}

func scanSegmentValue(rows *sql.Rows) (SegmentValue, error) {
	var (
		v         SegmentValue
		customers sql.NullInt64
		avg, tot  sql.NullFloat64
	)
	if err := rows.Scan(&v.Segment, &customers, &avg, &tot); err != nil {
		return SegmentValue{}, err
	}
	v.Customers = nullInt(customers)
	v.AvgCLV = nullFloat(avg)
	v.TotalCLV = nullFloat(tot)
	return v, nil
}

// ActionSummary aggregates customers per recommended action, largest total
// value first.
func (s *Service) ActionSummary(ctx context.Context) (out []ActionSummary, err error) {
	defer track("action_summary", time.Now(), &err)

	if s.store.Mode() != database.ModePolicy {
		return nil, fmt.Errorf("retention policy: %w", ErrNotAvailable)
	}

	valueCol := "clv_12m"
	if !s.hasCLV() {
		valueCol = "priority_score"
	}

	return cached(s, "action_summary", valueCol, func() ([]ActionSummary, error) {
		query := fmt.Sprintf(`SELECT recommended_action, count(*), avg(churn_risk), avg(%[1]s), coalesce(sum(%[1]s), 0)
			FROM %[2]s
			WHERE recommended_action IS NOT NULL
			GROUP BY recommended_action
			ORDER BY 5 DESC, 1`, valueCol, database.CustomerView)

		return database.QueryAndScan(ctx, s.store, query, nil, func(rows *sql.Rows) (ActionSummary, error) {
			var (
				a             ActionSummary
				avgRisk, avgV sql.NullFloat64
			)
			if err := rows.Scan(&a.Action, &a.Customers, &avgRisk, &avgV, &a.TotalCLV); err != nil {
				return ActionSummary{}, err
			}
			a.AvgChurnRisk = avgRisk.Float64
			a.AvgCLV = avgV.Float64
			a.ValueColumn = valueCol
			return a, nil
		})
	})
}

// ActionDistribution counts customers per recommended action, most common first.
func (s *Service) ActionDistribution(ctx context.Context) (out []ActionCount, err error) {
	defer track("action_distribution", time.Now(), &err)

	if s.store.Mode() != database.ModePolicy {
		return nil, fmt.Errorf("retention policy: %w", ErrNotAvailable)
	}
	return cached(s, "action_distribution", nil, func() ([]ActionCount, error) {
		query := `SELECT recommended_action, count(*) FROM ` + database.CustomerView + `
			WHERE recommended_action IS NOT NULL
			GROUP BY 1 ORDER BY 2 DESC, 1`
		return database.QueryAndScan(ctx, s.store, query, nil, func(rows *sql.Rows) (ActionCount, error) {
			var a ActionCount
			err := rows.Scan(&a.Action, &a.Count)
			return a, err
		})
	})
}

// DefaultPriorityThreshold returns the configured quantile of all priority
// scores, interpolating linearly between ranks.
func (s *Service) DefaultPriorityThreshold(ctx context.Context) (float64, error) {
	if s.store.Mode() != database.ModePolicy {
		return 0, fmt.Errorf("retention policy: %w", ErrNotAvailable)
	}
	if math.IsNaN(s.opts.PriorityQuantile) {
		return 0, fmt.Errorf("priority quantile is NaN: %w", ErrInvalidQuery)
	}
	scores, err := database.QueryAndScan(ctx, s.store,
		"SELECT priority_score FROM "+database.CustomerView+" WHERE priority_score IS NOT NULL",
		nil, func(rows *sql.Rows) (float64, error) {
			var v float64
			err := rows.Scan(&v)
			return v, err
		})
	if err != nil {
		return 0, fmt.Errorf("failed to read priority scores: %w", err)
	}
	return priority.Quantile(scores, s.opts.PriorityQuantile), nil
}

// PriorityList returns customers ordered by priority score, highest first.
// Equal scores are ordered by customer id; customers without a score come last.
func (s *Service) PriorityList(ctx context.Context, q Query) (page Page, err error) {
	defer track("priority_list", time.Now(), &err)

	if s.store.Mode() != database.ModePolicy {
		return Page{}, fmt.Errorf("retention policy: %w", ErrNotAvailable)
	}
	if q.Limit <= 0 {
		q.Limit = s.opts.ListLimit
	}

	return cached(s, "priority_list", q, func() (Page, error) {
		qb, threshold, err := s.priorityQuery(ctx, q)
		if err != nil {
			return Page{}, err
		}

		countSQL, countArgs := qb.Build("")
		var total int64
		if err := s.store.QueryRow(ctx, "SELECT count(*) FROM ("+countSQL+")", countArgs, &total); err != nil {
			return Page{}, fmt.Errorf("failed to count priority list: %w", err)
		}

		listSQL, args := qb.Build(priorityOrder+" LIMIT ?", q.Limit)
		customers, err := database.QueryAndScan(ctx, s.store, listSQL, args, scanCustomer)
		if err != nil {
			return Page{}, fmt.Errorf("failed to query priority list: %w", err)
		}
		if customers == nil {
			customers = []Customer{}
		}
		return Page{Total: total, Threshold: threshold, Customers: customers}, nil
	})
}

const (
	customerColumns = "SELECT customer_id, segment, churn_risk, clv_12m, priority_score, recommended_action FROM " + database.CustomerView
	priorityOrder   = "ORDER BY priority_score DESC NULLS LAST, customer_id ASC"
)

func (s *Service) priorityQuery(ctx context.Context, q Query) (*database.QueryBuilder, *float64, error) {
	qb := database.NewQueryBuilder(customerColumns)

	switch q.Filter {
	case FilterAction:
		if len(q.Actions) == 0 {
			return nil, nil, fmt.Errorf("action filter needs at least one action: %w", ErrInvalidQuery)
		}
		qb.WhereIn("recommended_action", q.Actions)
	case FilterPriority:
		floor := q.MinPriority
		if floor == nil {
			v, err := s.DefaultPriorityThreshold(ctx)
			if err != nil {
				return nil, nil, err
			}
			floor = &v
		}
		qb.Where("priority_score >= ?", *floor)
		return qb, floor, nil
	case "", FilterAll:
		if len(q.Actions) > 0 {
			qb.WhereIn("recommended_action", q.Actions)
		}
	default:
		return nil, nil, fmt.Errorf("unknown filter %q: %w", q.Filter, ErrInvalidQuery)
	}
	return qb, nil, nil
}

// AtRisk lists customers with churn risk at or above threshold (the
// configured default when nil). With CLV available they are ordered by
// churn_risk x CLV, otherwise by churn risk.
func (s *Service) AtRisk(ctx context.Context, threshold *float64, limit int) (page Page, err error) {
	defer track("at_risk", time.Now(), &err)

	if !s.hasChurn() {
		return Page{}, fmt.Errorf("churn risk: %w", ErrNotAvailable)
	}
	th := s.opts.AtRiskThreshold
	if threshold != nil {
		th = *threshold
	}
	if limit <= 0 {
		limit = s.opts.ListLimit
	}

	type params struct {
		Threshold float64
		Limit     int
	}
	return cached(s, "at_risk", params{th, limit}, func() (Page, error) {
		var total int64
		if err := s.store.QueryRow(ctx,
			"SELECT count(*) FROM "+database.CustomerView+" WHERE churn_risk >= ?",
			[]interface{}{th}, &total); err != nil {
			return Page{}, fmt.Errorf("failed to count at-risk customers: %w", err)
		}

		order := "ORDER BY churn_risk DESC, customer_id ASC"
		value := "CAST(NULL AS DOUBLE)"
		if s.hasCLV() {
			value = "churn_risk * clv_12m"
			order = "ORDER BY churn_risk * clv_12m DESC NULLS LAST, churn_risk DESC, customer_id ASC"
		}
		query := `SELECT customer_id, segment, churn_risk, clv_12m, ` + value + `, recommended_action
			FROM ` + database.CustomerView + `
			WHERE churn_risk >= ? ` + order + ` LIMIT ?`

		customers, err := database.QueryAndScan(ctx, s.store, query, []interface{}{th, limit}, scanCustomer)
		if err != nil {
			return Page{}, fmt.Errorf("failed to query at-risk customers: %w", err)
		}
		if customers == nil {
			customers = []Customer{}
		}
		return Page{Total: total, Threshold: &th, Customers: customers}, nil
	})
}

func scanCustomer(rows *sql.Rows) (Customer, error) {
	var (
		c             Customer
		segment, act  sql.NullString
		risk, clv, pr sql.NullFloat64
	)
	if err := rows.Scan(&c.CustomerID, &segment, &risk, &clv, &pr, &act); err != nil {
		return Customer{}, err
	}
	c.Segment = nullString(segment)
	c.ChurnRisk = nullFloat(risk)
	c.CLV = nullFloat(clv)
	c.PriorityScore = nullFloat(pr)
	c.Action = nullString(act)
	return c, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
