// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
)

// Key prefixes. Primary keys sort by time, so a reverse iteration over
// predKeyPrefix yields the newest entries first.
const (
	predKeyPrefix = "pred:"
	idKeyPrefix   = "pred_id:"
)

// BadgerStore keeps predictions in BadgerDB with a TTL.
type BadgerStore struct {
	db         *badger.DB
	ttl        time.Duration
	gcRatio    float64
	gcInterval time.Duration

	mu     sync.RWMutex
	closed bool
}

// Open opens the store described by cfg. InMemory ignores Path.
func Open(cfg *config.AuditConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	gcInterval := cfg.GCInterval
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("retention", cfg.Retention).
		Msg("Prediction audit log opened")

	return &BadgerStore{
		db:         db,
		ttl:        cfg.Retention,
		gcRatio:    0.5,
		gcInterval: gcInterval,
	}, nil
}

func predKey(t time.Time, id string) []byte {
	// Fixed width keeps lexical order equal to time order.
	return []byte(fmt.Sprintf("%s%020d:%s", predKeyPrefix, t.UnixNano(), id))
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Save writes e under its time-ordered key plus an id index entry.
func (s *BadgerStore) Save(_ context.Context, e *Entry) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if e == nil || e.ID == "" {
		return errors.New("audit entry must have an id")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	at := e.ScoredAt
	if at.IsZero() {
		at = e.RecordedAt
	}
	key := predKey(at, e.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		index := badger.NewEntry([]byte(idKeyPrefix+e.ID), key)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
			index = index.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set entry: %w", err)
		}
		if err := txn.SetEntry(index); err != nil {
			return fmt.Errorf("set id index: %w", err)
		}
		return nil
	})
}

// Get returns the entry recorded for prediction id.
func (s *BadgerStore) Get(_ context.Context, id string) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var e Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(idKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get id index: %w", err)
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err = txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Recent returns up to limit entries, newest first.
func (s *BadgerStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	out := make([]Entry, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(predKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the largest key <= seek.
		seek := []byte(predKeyPrefix + "\xff")
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(out) < limit; it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode entry %s: %w", it.Item().Key(), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of live entries.
func (s *BadgerStore) Count() (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(predKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC rewrites value log files until badger reports nothing left to reclaim.
func (s *BadgerStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Serve runs value log GC on the configured interval until ctx is done.
// It implements suture.Service.
func (s *BadgerStore) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.RunGC(); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				logging.Warn().Err(err).Msg("Audit log GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Audit log GC complete")
		}
	}
}

// String names the GC service in supervisor logs.
func (s *BadgerStore) String() string {
	return "audit-gc"
}

// Close closes BadgerDB. It is safe to call more than once.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	return nil
}
