package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
)

func TestResultWriterFlushesOnShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockResultRecorder(ctrl)
	w := NewResultWriter(store)

	gomock.InOrder(
		store.EXPECT().RecordGame(gomock.Any(), &GameResult{GameID: "g1"}).Return(nil),
		store.EXPECT().RecordGame(gomock.Any(), &GameResult{GameID: "g2"}).Return(errors.New("locked")),
	)

	w.RecordGame(context.Background(), &GameResult{GameID: "g1"})
	w.RecordGame(context.Background(), &GameResult{GameID: "g2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recorded, dropped, failed := w.Stats()
	if recorded != 1 || dropped != 0 || failed != 1 {
		t.Errorf("expected 1 recorded 0 dropped 1 failed, got %d %d %d", recorded, dropped, failed)
	}
}

func TestResultWriterDropsWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockResultRecorder(ctrl)
	w := NewResultWriter(store)

	for i := 0; i < resultQueueSize+3; i++ {
		if err := w.RecordGame(context.Background(), &GameResult{GameID: "g"}); err != nil {
			t.Fatalf("expected record never to fail, got %v", err)
		}
	}
	if _, dropped, _ := w.Stats(); dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", dropped)
	}
}

func TestResultWriterFlushesFullBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockResultRecorder(ctrl)
	w := NewResultWriter(store)

	done := make(chan struct{})
	calls := 0
	store.EXPECT().RecordGame(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *GameResult) error {
		calls++
		if calls == resultFlushBatch {
			close(done)
		}
		return nil
	}).Times(resultFlushBatch)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	for i := 0; i < resultFlushBatch; i++ {
		w.RecordGame(ctx, &GameResult{GameID: "g"})
	}

	select {
	case <-done:
	case <-time.After(resultFlushEvery / 2):
		t.Error("expected a full batch to flush before the timer")
	}
	cancel()
	<-stopped
}
