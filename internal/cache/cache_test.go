// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *clock) {
	clk := &clock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clk.now
	return c, clk
}

func TestCache_GetSet(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(time.Minute)
	c.Set("overview", 42)

	v, ok := c.Get("overview")
	if !ok || v != 42 {
		t.Errorf("Get() = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("missing key reported as present")
	}

	s := c.GetStats()
	if s.Hits != 1 || s.Misses != 1 || s.TotalKeys != 1 {
		t.Errorf("stats = %+v", s)
	}
	if c.HitRate() != 50 {
		t.Errorf("HitRate() = %v, want 50", c.HitRate())
	}
}

func TestCache_Expiration(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache(time.Minute)
	c.Set("k", "v")
	c.SetWithTTL("long", "v", time.Hour)

	clk.advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("entry with longer TTL expired early")
	}
	if s := c.GetStats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestCache_CleanupAndClear(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)

	clk.advance(90 * time.Second)
	if n := c.Cleanup(); n != 2 {
		t.Errorf("Cleanup() = %d, want 2", n)
	}
	c.Clear()
	if _, ok := c.Get("c"); ok {
		t.Error("Clear() left an entry behind")
	}
	if s := c.GetStats(); s.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d after Clear", s.TotalKeys)
	}
}

func TestCache_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	c := New(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	type q struct {
		Actions []string
		Limit   int
	}
	a := GenerateKey("priority", q{Actions: []string{"x"}, Limit: 10})
	b := GenerateKey("priority", q{Actions: []string{"x"}, Limit: 10})
	c := GenerateKey("priority", q{Actions: []string{"x"}, Limit: 11})
	if a != b {
		t.Error("same params produced different keys")
	}
	if a == c {
		t.Error("different params produced the same key")
	}
}
