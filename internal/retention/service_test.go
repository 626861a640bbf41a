// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package retention

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/churnwatch/internal/cache"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/policy"
)

const (
	segmentsCSV = `customer_id,cluster,cluster_name,recency_days,clv_12m
1001,0,Champions,5,1200.5
1002,1,At Risk,120,300
1003,2,Hibernating,300,50
1004,0,Champions,10,900
`
	segmentsNoCLV = `customer_id,cluster,cluster_name
1001,0,Champions
1002,1,At Risk
1003,2,Hibernating
1004,0,Champions
`
	churnCSV = `customer_id,churn_risk
1001,0.1
1002,0.8
1003,0.95
1004,0.4
`
	policyCSV = `customer_id,churn_risk,priority_score,recommended_action
1001,0.1,120.05,No Action Required
1002,0.8,240,Immediate Retention Campaign
1003,0.95,47.5,Immediate Retention Campaign
1004,0.4,360,Monitor / Standard Campaign
`
	clvBySegmentCSV = `cluster_name,customers,avg_clv,total_clv
Champions,2,1050.25,2100.5
At Risk,1,300,300
Hibernating,1,50,50
`
)

var fullData = map[string]string{
	"customer_segments_with_clv.csv": segmentsCSV,
	"customer_churn_risk.csv":        churnCSV,
	"customer_retention_policy.csv":  policyCSV,
	"clv_by_segment.csv":             clvBySegmentCSV,
}

func testService(t *testing.T, files map[string]string, opts Options, c *cache.Cache) *Service {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default().Data
	cfg.Dir = dir
	cfg.Threads = 1
	db, err := database.New(&cfg)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	return NewService(db, policy.MustEvaluator(policy.DefaultThresholds()), opts, c)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func ids(cs []Customer) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.CustomerID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOverview(t *testing.T) {
	t.Parallel()
	s := testService(t, fullData, DefaultOptions(), nil)

	ov, err := s.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if ov.TotalCustomers != 4 || ov.Segments != 3 {
		t.Errorf("customers/segments = %d/%d, want 4/3", ov.TotalCustomers, ov.Segments)
	}
	if ov.TotalCLV == nil || !approx(*ov.TotalCLV, 2450.5) {
		t.Errorf("TotalCLV = %v, want 2450.5", ov.TotalCLV)
	}
	if ov.AvgChurnRisk == nil || !approx(*ov.AvgChurnRisk, 0.5625) {
		t.Errorf("AvgChurnRisk = %v, want 0.5625", ov.AvgChurnRisk)
	}
	// 0.8 and 0.95 are strictly above 0.7.
	if ov.HighRiskCount == nil || *ov.HighRiskCount != 2 {
		t.Errorf("HighRiskCount = %v, want 2", ov.HighRiskCount)
	}
	if ov.Mode != database.ModePolicy {
		t.Errorf("Mode = %s", ov.Mode)
	}
}

func TestOverview_SegmentsOnly(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{"customer_segments.csv": segmentsNoCLV}, DefaultOptions(), nil)

	ov, err := s.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if ov.TotalCLV != nil || ov.AvgChurnRisk != nil || ov.HighRiskCount != nil {
		t.Errorf("expected nil value and risk fields, got %+v", ov)
	}
}

func TestOverview_NoData(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{}, DefaultOptions(), nil)

	if _, err := s.Overview(context.Background()); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Overview() error = %v, want ErrNotAvailable", err)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{}, DefaultOptions(), nil)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if err := s.store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Ping() after Close error = %v, want ErrNotAvailable", err)
	}
}

func TestSegmentValue(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		files map[string]string
	}{
		{"from clv_by_segment", fullData},
		{"aggregated", map[string]string{"customer_segments_with_clv.csv": segmentsCSV}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := testService(t, tc.files, DefaultOptions(), nil)

			got, err := s.SegmentValue(context.Background())
			if err != nil {
				t.Fatalf("SegmentValue() error = %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d segments, want 3", len(got))
			}
			if got[0].Segment != "Champions" || got[0].TotalCLV == nil || !approx(*got[0].TotalCLV, 2100.5) {
				t.Errorf("first segment = %+v", got[0])
			}
			if got[2].Segment != "Hibernating" {
				t.Errorf("last segment = %s, want Hibernating", got[2].Segment)
			}
		})
	}
}

func TestActionSummary(t *testing.T) {
	t.Parallel()
	s := testService(t, fullData, DefaultOptions(), nil)

	got, err := s.ActionSummary(context.Background())
	if err != nil {
		t.Fatalf("ActionSummary() error = %v", err)
	}
	want := []struct {
		action    string
		customers int64
		total     float64
	}{
		{string(policy.ActionNone), 1, 1200.5},
		{string(policy.ActionMonitor), 1, 900},
		{string(policy.ActionImmediateCampaign), 2, 350},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Action != w.action || got[i].Customers != w.customers || !approx(got[i].TotalCLV, w.total) {
			t.Errorf("row %d = %+v, want %+v", i, got[i], w)
		}
		if got[i].ValueColumn != "clv_12m" {
			t.Errorf("ValueColumn = %s", got[i].ValueColumn)
		}
	}
	if !approx(got[2].AvgChurnRisk, 0.875) {
		t.Errorf("immediate avg churn = %v, want 0.875", got[2].AvgChurnRisk)
	}
}

func TestActionSummary_PriorityWhenNoCLV(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{"customer_retention_policy.csv": policyCSV}, DefaultOptions(), nil)

	got, err := s.ActionSummary(context.Background())
	if err != nil {
		t.Fatalf("ActionSummary() error = %v", err)
	}
	if got[0].Action != string(policy.ActionMonitor) || got[0].ValueColumn != "priority_score" {
		t.Errorf("first row = %+v", got[0])
	}
}

func TestActionSummary_RequiresPolicy(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{
		"customer_segments_with_clv.csv": segmentsCSV,
		"customer_churn_risk.csv":        churnCSV,
	}, DefaultOptions(), nil)

	if _, err := s.ActionSummary(context.Background()); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("ActionSummary() error = %v, want ErrNotAvailable", err)
	}
	if _, err := s.PriorityList(context.Background(), Query{}); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("PriorityList() error = %v, want ErrNotAvailable", err)
	}
}

func TestActionDistribution(t *testing.T) {
	t.Parallel()
	s := testService(t, fullData, DefaultOptions(), nil)

	got, err := s.ActionDistribution(context.Background())
	if err != nil {
		t.Fatalf("ActionDistribution() error = %v", err)
	}
	if len(got) != 3 || got[0].Action != string(policy.ActionImmediateCampaign) || got[0].Count != 2 {
		t.Errorf("distribution = %+v", got)
	}
	if got[1].Action != string(policy.ActionMonitor) {
		t.Errorf("ties must order by action, got %+v", got[1:])
	}
}

func TestPriorityList(t *testing.T) {
	t.Parallel()
	s := testService(t, fullData, DefaultOptions(), nil)
	ctx := context.Background()
	hundred := 100.0

	tests := []struct {
		name      string
		q         Query
		wantIDs   []string
		wantTotal int64
	}{
		{"all", Query{Filter: FilterAll}, []string{"1004", "1002", "1001", "1003"}, 4},
		{"limit", Query{Limit: 2}, []string{"1004", "1002"}, 4},
		{"action", Query{Filter: FilterAction, Actions: []string{string(policy.ActionImmediateCampaign)}}, []string{"1002", "1003"}, 2},
		{"min priority", Query{Filter: FilterPriority, MinPriority: &hundred}, []string{"1004", "1002", "1001"}, 3},
		// 0.9 quantile of {47.5, 120.05, 240, 360} is 324.
		{"default quantile", Query{Filter: FilterPriority}, []string{"1004"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.PriorityList(ctx, tt.q)
			if err != nil {
				t.Fatalf("PriorityList() error = %v", err)
			}
			if got := ids(page.Customers); !equalStrings(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", page.Total, tt.wantTotal)
			}
		})
	}

	th, err := s.DefaultPriorityThreshold(ctx)
	if err != nil || !approx(th, 324) {
		t.Errorf("DefaultPriorityThreshold() = %v, %v; want 324", th, err)
	}
}

func TestPriorityList_InvalidQuery(t *testing.T) {
	t.Parallel()
	s := testService(t, fullData, DefaultOptions(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		q    Query
	}{
		{"unknown filter", Query{Filter: "segment"}},
		{"action filter without actions", Query{Filter: FilterAction}},
		{"action filter with empty list", Query{Filter: FilterAction, Actions: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.PriorityList(ctx, tt.q)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("PriorityList() = %d customers, error %v; want ErrInvalidQuery", len(page.Customers), err)
			}
			var buf bytes.Buffer
			if _, err := s.Export(ctx, tt.q, &buf); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("Export() error = %v, want ErrInvalidQuery", err)
			}
			if buf.Len() != 0 {
				t.Errorf("Export() wrote %q before rejecting the query", buf.String())
			}
		})
	}
}

func TestDefaultPriorityThreshold_NaNQuantile(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	opts.PriorityQuantile = math.NaN()
	s := testService(t, fullData, opts, nil)

	if _, err := s.DefaultPriorityThreshold(context.Background()); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("DefaultPriorityThreshold() error = %v, want ErrInvalidQuery", err)
	}
	if _, err := s.PriorityList(context.Background(), Query{Filter: FilterPriority}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("PriorityList() error = %v, want ErrInvalidQuery", err)
	}
}

func TestAtRisk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		// 0.8*300 = 240 outranks 0.95*50 = 47.5.
		{"value weighted", map[string]string{"customer_segments_with_clv.csv": segmentsCSV, "customer_churn_risk.csv": churnCSV}, []string{"1002", "1003"}},
		{"risk only", map[string]string{"customer_segments.csv": segmentsNoCLV, "customer_churn_risk.csv": churnCSV}, []string{"1003", "1002"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := testService(t, tt.files, DefaultOptions(), nil)

			page, err := s.AtRisk(context.Background(), nil, 0)
			if err != nil {
				t.Fatalf("AtRisk() error = %v", err)
			}
			if got := ids(page.Customers); !equalStrings(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
			if page.Threshold == nil || *page.Threshold != 0.5 {
				t.Errorf("Threshold = %v, want 0.5", page.Threshold)
			}
		})
	}
}

func TestAtRisk_InclusiveThreshold(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{"customer_segments.csv": segmentsNoCLV, "customer_churn_risk.csv": churnCSV}, DefaultOptions(), nil)

	th := 0.4
	page, err := s.AtRisk(context.Background(), &th, 0)
	if err != nil {
		t.Fatalf("AtRisk() error = %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.PersistPath = filepath.Join(t.TempDir(), "out", "customer_retention_policy.csv")
	c := cache.New(time.Minute)
	s := testService(t, map[string]string{
		"customer_segments_with_clv.csv": segmentsCSV,
		"customer_churn_risk.csv":        churnCSV,
	}, opts, c)
	ctx := context.Background()

	// Populate the cache with the pre-rebuild answer.
	if _, err := s.AtRisk(ctx, nil, 0); err != nil {
		t.Fatal(err)
	}

	res, err := s.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if res.Rows != 4 || res.Scored != 4 {
		t.Errorf("rows/scored = %d/%d, want 4/4", res.Rows, res.Scored)
	}
	wantTiers := map[string]int64{"High": 2, "Medium": 0, "Low-Medium": 1, "Low": 1}
	for k, v := range wantTiers {
		if res.Tiers[k] != v {
			t.Errorf("Tiers[%s] = %d, want %d", k, res.Tiers[k], v)
		}
	}
	if s.Mode() != database.ModePolicy {
		t.Fatalf("Mode() = %s after rebuild", s.Mode())
	}
	if c.GetStats().TotalKeys != 0 {
		t.Error("rebuild should clear the cache")
	}

	page, err := s.PriorityList(ctx, Query{})
	if err != nil {
		t.Fatalf("PriorityList() error = %v", err)
	}
	if got := ids(page.Customers); !equalStrings(got, []string{"1004", "1002", "1001", "1003"}) {
		t.Errorf("ids = %v", got)
	}
	top := page.Customers[0]
	if top.Action == nil || *top.Action != string(policy.ActionMonitor) {
		t.Errorf("1004 action = %v, want monitor", top.Action)
	}
	if top.PriorityScore == nil || !approx(*top.PriorityScore, 360) {
		t.Errorf("1004 priority = %v, want 360", top.PriorityScore)
	}

	if _, err := os.Stat(opts.PersistPath); err != nil {
		t.Errorf("persisted policy missing: %v", err)
	}
}

func TestRebuild_NoChurn(t *testing.T) {
	t.Parallel()
	s := testService(t, map[string]string{"customer_segments.csv": segmentsNoCLV}, DefaultOptions(), nil)

	if _, err := s.Rebuild(context.Background()); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Rebuild() error = %v, want ErrNotAvailable", err)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()
	s := testService(t, fullData, DefaultOptions(), nil)

	var buf bytes.Buffer
	n, err := s.Export(context.Background(), Query{Filter: FilterAction, Actions: []string{string(policy.ActionImmediateCampaign)}}, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2", len(records))
	}
	if !equalStrings(records[0], ExportHeader) {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "1002" || records[1][1] != "At Risk" || records[1][4] != "240" {
		t.Errorf("first row = %v", records[1])
	}
}

func TestCachedReads(t *testing.T) {
	t.Parallel()
	c := cache.New(time.Minute)
	s := testService(t, fullData, DefaultOptions(), c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.PriorityList(ctx, Query{Limit: 2}); err != nil {
			t.Fatal(err)
		}
	}
	if st := c.GetStats(); st.Hits != 2 || st.Misses != 1 {
		t.Errorf("stats = %+v, want 2 hits and 1 miss", st)
	}
}
