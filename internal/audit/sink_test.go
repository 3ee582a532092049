package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	mu      sync.Mutex
	events  []Event
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func (s *stubStore) InsertEvents(ctx context.Context, events []Event) error {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestSinkPersistsQueuedEvents(t *testing.T) {
	store := &stubStore{}
	sink := NewSink(store, nil, SinkOptions{QueueSize: 16, FlushInterval: 5 * time.Millisecond})

	for i := 0; i < 5; i++ {
		sink.Record(context.Background(), Event{
			PrincipalID: int64(i + 1),
			Resource:    "permission",
			Action:      "users.view",
			Granted:     true,
			Reason:      "granted by role",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := store.count(); got != 5 {
		t.Fatalf("expected 5 persisted events, got %d", got)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, ev := range store.events {
		if ev.ID == uuid.Nil {
			t.Fatalf("event id not assigned")
		}
		if ev.OccurredAt.IsZero() {
			t.Fatalf("event timestamp not assigned")
		}
	}
}

func TestSinkDropsWhenQueueFull(t *testing.T) {
	store := &stubStore{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	var mu sync.Mutex
	dropped := 0
	sink := NewSink(store, nil, SinkOptions{
		QueueSize:     2,
		BatchSize:     1,
		FlushInterval: time.Millisecond,
		OnDrop: func() {
			mu.Lock()
			dropped++
			mu.Unlock()
		},
	})

	// First event reaches the store and blocks there.
	sink.Record(context.Background(), Event{Action: "first"})
	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("writer never reached the store")
	}

	// Two fit in the queue, the rest must drop without blocking.
	for i := 0; i < 4; i++ {
		sink.Record(context.Background(), Event{Action: "burst"})
	}

	mu.Lock()
	droppedNow := dropped
	mu.Unlock()
	if droppedNow != 2 {
		t.Fatalf("expected 2 dropped events, got %d", droppedNow)
	}

	close(store.gate)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := store.count(); got != 3 {
		t.Fatalf("expected 3 persisted events, got %d", got)
	}
}

func TestSinkCloseRespectsContext(t *testing.T) {
	store := &stubStore{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	sink := NewSink(store, nil, SinkOptions{QueueSize: 4, BatchSize: 1, FlushInterval: time.Millisecond})
	sink.Record(context.Background(), Event{Action: "stuck"})
	<-store.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := sink.Close(ctx); err == nil {
		t.Fatal("expected close to time out while the store blocks")
	}
	close(store.gate)
}
