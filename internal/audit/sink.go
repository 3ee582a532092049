package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists batches of audit events.
type Store interface {
	InsertEvents(ctx context.Context, events []Event) error
}

// SinkOptions tune the sink's queue and writer.
type SinkOptions struct {
	// QueueSize bounds the in-flight event queue. Defaults to 1024.
	QueueSize int
	// BatchSize caps how many events one insert carries. Defaults to 64.
	BatchSize int
	// FlushInterval bounds how long a partial batch may wait. Defaults
	// to 250ms.
	FlushInterval time.Duration
	// WriteTimeout bounds each store write. Defaults to 5s.
	WriteTimeout time.Duration
	// OnDrop is invoked once per event discarded because the queue was
	// full. Optional.
	OnDrop func()
}

// Sink receives authorization decision events and persists them from a
// dedicated writer goroutine. Enqueueing never blocks the caller: when
// the queue is full the event is dropped and counted, keeping the
// enforcement path free of audit latency. Failures inside the sink are
// logged and never surface to callers.
type Sink struct {
	store   Store
	logger  *slog.Logger
	opts    SinkOptions
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once
}

// NewSink constructs a Sink and starts its writer.
func NewSink(store Store, logger *slog.Logger, opts SinkOptions) *Sink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 250 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	s := &Sink{
		store:  store,
		logger: logger,
		opts:   opts,
		queue:  make(chan Event, opts.QueueSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.write()
	return s
}

// Record enqueues one event, filling in identity and timestamp when
// absent. It never blocks and never returns an error: a full queue
// drops the event.
func (s *Sink) Record(ctx context.Context, event Event) {
	_ = ctx
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case s.queue <- event:
	default:
		if s.opts.OnDrop != nil {
			s.opts.OnDrop()
		}
		if s.logger != nil {
			s.logger.Warn("audit queue full, event dropped",
				slog.Int64("principal", event.PrincipalID),
				slog.String("action", event.Action))
		}
	}
}

// Close stops the writer after draining queued events. The context
// bounds how long the drain may take.
func (s *Sink) Close(ctx context.Context) error {
	s.closing.Do(func() {
		close(s.done)
	})
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-finished:
		return nil
	}
}

func (s *Sink) write() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, s.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		if err := s.store.InsertEvents(ctx, batch); err != nil && s.logger != nil {
			s.logger.Error("audit write", slog.Int("events", len(batch)), slog.Any("error", err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case event := <-s.queue:
			batch = append(batch, event)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case event := <-s.queue:
					batch = append(batch, event)
					if len(batch) >= s.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
