// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

// Package audit keeps a log of served predictions in BadgerDB.
//
// # Storage
//
// Each prediction is stored twice:
//
//	pred:<unix-nanos, 20 digits>:<id>  -> JSON Entry
//	pred_id:<id>                       -> primary key
//
// The primary key orders entries by scoring time, so Recent is a reverse
// prefix scan. Both keys carry the configured retention as a badger TTL;
// expired entries disappear from reads immediately and their space is
// reclaimed by value log GC, which BadgerStore.Serve runs periodically under
// the supervisor.
//
// # Writing
//
// Logger is registered as a predictor observer. It queues entries on a
// buffered channel and a single goroutine writes them, so a slow disk never
// delays /predict. When the queue is full the entry is dropped and counted.
//
//	store, err := audit.Open(&cfg.Audit)
//	logger := audit.NewLogger(store, audit.DefaultBufferSize)
//	defer logger.Close()
//	predictor, err := predict.New(predict.Options{Observers: []predict.Observer{logger}})
package audit
