package main

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	resultQueueSize  = 256
	resultFlushBatch = 16
	resultFlushEvery = 2 * time.Second
)

// ResultWriter queues results from the tick loop and writes them to a
// slower recorder in the background. Record never blocks.
type ResultWriter struct {
	store   ResultRecorder
	results chan *GameResult

	// Live metrics (mutex protected)
	mu       sync.RWMutex
	recorded int
	dropped  int
	failed   int
}

// NewResultWriter creates a writer in front of store
func NewResultWriter(store ResultRecorder) *ResultWriter {
	return &ResultWriter{
		store:   store,
		results: make(chan *GameResult, resultQueueSize),
	}
}

// RecordGame enqueues a result for async persistence
func (w *ResultWriter) RecordGame(ctx context.Context, result *GameResult) error {
	select {
	case w.results <- result:
	default:
		// Channel full, drop the result rather than stall every game
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		log.Printf("Game [%s]: result dropped, writer queue full", result.GameID)
	}
	return nil
}

// Stats returns how many results were written, dropped and failed
func (w *ResultWriter) Stats() (recorded, dropped, failed int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.recorded, w.dropped, w.failed
}

// Run batches queued results until ctx is cancelled, then drains the queue
func (w *ResultWriter) Run(ctx context.Context) error {
	batch := make([]*GameResult, 0, resultFlushBatch)
	ticker := time.NewTicker(resultFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case result := <-w.results:
			batch = append(batch, result)
			if len(batch) >= resultFlushBatch {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			for {
				select {
				case result := <-w.results:
					batch = append(batch, result)
				default:
					w.flush(batch)
					return nil
				}
			}
		}
	}
}

// flush writes a batch with a fresh context so shutdown still persists it
func (w *ResultWriter) flush(batch []*GameResult) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var recorded, failed int
	for _, result := range batch {
		if err := w.store.RecordGame(ctx, result); err != nil {
			log.Printf("Game [%s]: record result: %v", result.GameID, err)
			failed++
			continue
		}
		recorded++
	}

	w.mu.Lock()
	w.recorded += recorded
	w.failed += failed
	w.mu.Unlock()
}
