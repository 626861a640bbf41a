// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/predict"
)

func openTestStore(t *testing.T, retention time.Duration) *BadgerStore {
	t.Helper()
	s, err := Open(&config.AuditConfig{Enabled: true, InMemory: true, Retention: retention})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func prediction(id string, at time.Time, p float64) predict.Prediction {
	d := policy.Classify(p, policy.DefaultThresholds())
	return predict.Prediction{
		ID:             id,
		Probability:    p,
		RawProbability: p,
		Tier:           d.Tier,
		Action:         d.Action,
		ScoredAt:       at,
	}
}

func TestBadgerStore_SaveGet(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	e := &Entry{Prediction: prediction("p-1", time.Now(), 0.82), RequestID: "req-1"}
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Tier != policy.TierHigh || got.RequestID != "req-1" || got.RecordedAt.IsZero() {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBadgerStore_SaveRequiresID(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 0)

	if err := s.Save(context.Background(), &Entry{}); err == nil {
		t.Error("expected error for entry without id")
	}
}

func TestBadgerStore_RecentNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order to show ordering comes from the key.
	for _, i := range []int{2, 0, 4, 1, 3} {
		e := &Entry{Prediction: prediction(fmt.Sprintf("p-%d", i), base.Add(time.Duration(i)*time.Second), 0.1)}
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	want := []string{"p-4", "p-3", "p-2"}
	if len(got) != len(want) {
		t.Fatalf("Recent() returned %d entries, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Recent()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}

	n, err := s.Count()
	if err != nil || n != 5 {
		t.Errorf("Count() = %d, %v; want 5", n, err)
	}
}

func TestBadgerStore_TTL(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, time.Second)
	ctx := context.Background()

	if err := s.Save(ctx, &Entry{Prediction: prediction("short", time.Now(), 0.5)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "short"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	// Badger TTLs have second granularity.
	time.Sleep(2100 * time.Millisecond)

	if _, err := s.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
	if got, _ := s.Recent(ctx, 10); len(got) != 0 {
		t.Errorf("Recent() after expiry = %d entries", len(got))
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 0)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := s.Recent(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Recent() after Close error = %v, want ErrClosed", err)
	}
	if err := s.RunGC(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunGC() after Close error = %v, want ErrClosed", err)
	}
}

func TestBadgerStore_GCInMemory(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 0)
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() in memory error = %v", err)
	}
}

func TestBadgerStore_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestLogger_Observe(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, time.Hour)
	l := NewLogger(s, 16)

	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	for i := 0; i < 5; i++ {
		if err := l.Observe(ctx, prediction(fmt.Sprintf("p-%d", i), time.Now().Add(time.Duration(i)*time.Millisecond), 0.9)); err != nil {
			t.Fatalf("Observe() error = %v", err)
		}
	}
	// Close drains the queue.
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("stored %d entries, want 5", len(got))
	}
	if got[0].RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", got[0].RequestID)
	}

	if err := l.Observe(ctx, prediction("late", time.Now(), 0.9)); !errors.Is(err, ErrClosed) {
		t.Errorf("Observe() after Close error = %v, want ErrClosed", err)
	}
}

// blockingStore never finishes a Save until released.
type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) Save(ctx context.Context, _ *Entry) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}
func (b *blockingStore) Get(context.Context, string) (*Entry, error) { return nil, ErrNotFound }
func (b *blockingStore) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (b *blockingStore) Close() error                                 { return nil }

func TestLogger_DropsWhenFull(t *testing.T) {
	t.Parallel()
	store := &blockingStore{release: make(chan struct{})}
	l := NewLogger(store, 1)

	// The writer takes one entry and blocks; the next fills the buffer; the
	// rest are dropped.
	for i := 0; i < 10; i++ {
		_ = l.Observe(context.Background(), prediction(fmt.Sprintf("p-%d", i), time.Now(), 0.2))
	}
	if l.Dropped() == 0 {
		t.Error("expected dropped entries with a blocked writer")
	}

	close(store.release)
	_ = l.Close()
}
