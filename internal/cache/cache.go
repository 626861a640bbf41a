// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a thread-safe in-memory map with a single TTL for every entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	TotalKeys   int64     `json:"total_keys"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// New creates a cache. Expired entries are dropped on access; call Serve (or
// run the cache under the supervisor) to also sweep them periodically.
//
//	c := cache.New(5 * time.Minute)
//	key := cache.GenerateKey("priority_list", query)
//	if v, ok := c.Get(key); ok {
//	    return v.(PriorityPage), nil
//	}
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		stats:   Stats{LastCleanup: time.Now()},
	}
}

// Get returns a live entry.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.record(func(s *Stats) { s.Misses++ })
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		return nil, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return e.data, true
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a specific TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{data: value, expiresAt: c.now().Add(ttl)}
	n := len(c.entries)
	c.mu.Unlock()
	c.record(func(s *Stats) { s.TotalKeys = int64(n) })
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()
	c.record(func(s *Stats) { s.TotalKeys = int64(n) })
}

// Clear drops every entry, for example after the underlying data is reloaded.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	c.record(func(s *Stats) {
		s.Evictions += int64(n)
		s.TotalKeys = 0
	})
}

// GetStats returns a snapshot of the counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// Serve sweeps expired entries every TTL until ctx is done. It satisfies
// suture.Service.
func (c *Cache) Serve(ctx context.Context) error {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// String names the service in supervisor logs.
func (c *Cache) String() string { return "retention-cache" }

// Cleanup removes expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += int64(removed)
		s.TotalKeys = int64(n)
		s.LastCleanup = now
	})
	return removed
}

func (c *Cache) record(f func(*Stats)) {
	c.statsMu.Lock()
	f(&c.stats)
	c.statsMu.Unlock()
}

// GenerateKey builds a compact key from a method name and JSON-serializable params.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
