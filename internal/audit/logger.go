// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
	"github.com/tomtom215/churnwatch/internal/predict"
)

// DefaultBufferSize is the async write queue length.
const DefaultBufferSize = 1000

// Logger records predictions asynchronously so scoring latency does not
// include the store write. It implements predict.Observer.
type Logger struct {
	store     Store
	entryChan chan *Entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	once      sync.Once

	mu      sync.Mutex
	dropped int64
}

var _ predict.Observer = (*Logger)(nil)

// NewLogger starts the background writer.
func NewLogger(store Store, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	l := &Logger{
		store:     store,
		entryChan: make(chan *Entry, bufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case e := <-l.entryChan:
					l.write(e)
				default:
					return
				}
			}
		case e := <-l.entryChan:
			l.write(e)
		}
	}
}

func (l *Logger) write(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := l.store.Save(ctx, e)
	metrics.RecordAuditWrite(err)
	if err != nil {
		logging.Error().Err(err).Str("prediction_id", e.ID).Msg("Failed to save prediction to audit log")
	}
}

// Observe queues p. A full queue drops the entry with a warning rather than
// blocking the request.
func (l *Logger) Observe(ctx context.Context, p predict.Prediction) error {
	e := &Entry{
		Prediction:    p,
		RequestID:     logging.RequestIDFromContext(ctx),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RecordedAt:    time.Now().UTC(),
	}

	select {
	case <-l.stopChan:
		return ErrClosed
	default:
	}

	select {
	case l.entryChan <- e:
	default:
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
		metrics.RecordAuditWrite(errBufferFull)
		logging.Warn().Str("prediction_id", p.ID).Msg("Audit buffer full, dropping prediction")
	}
	return nil
}

// Dropped returns how many entries were discarded on a full buffer.
func (l *Logger) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close drains queued entries and stops the writer. The store is left open.
func (l *Logger) Close() error {
	l.once.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

type bufferFullError struct{}

func (bufferFullError) Error() string { return "audit buffer full" }

var errBufferFull error = bufferFullError{}
