// Package tracker records click events and increments counters without
// delaying the resolve path. Events are handed off through a bounded channel
// to a worker pool; the caller never waits on store writes, and tracking
// failures are logged, never propagated.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelzorin/shortlink/internal/entity"
)

const storeTimeout = 5 * time.Second

type clickStore interface {
	IncrementClicks(ctx context.Context, shortCode string) error
	SaveClickEvent(ctx context.Context, event *entity.ClickEvent) error
}

// Tracker is an asynchronous usage recorder.
type Tracker struct {
	store  clickStore
	logger *slog.Logger
	queue  chan entity.ClickEvent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a tracker with the given queue capacity and worker count.
// Close must be called to drain the queue and stop the workers.
func New(store clickStore, logger *slog.Logger, queueSize, workers int) *Tracker {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}

	t := &Tracker{
		store:  store,
		logger: logger,
		queue:  make(chan entity.ClickEvent, queueSize),
	}

	t.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go t.worker()
	}

	return t
}

// Track enqueues a click event without blocking. If the queue is full or the
// tracker is closed, the event is dropped: usage accounting is best effort
// and must never degrade the read path.
func (t *Tracker) Track(event entity.ClickEvent) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	select {
	case t.queue <- event:
	default:
		t.logger.Warn("click event dropped, queue full",
			slog.String("short_code", event.ShortCode))
	}
}

// Close drains the queue and stops the workers.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	close(t.queue)
	t.wg.Wait()
}

func (t *Tracker) worker() {
	defer t.wg.Done()

	for event := range t.queue {
		t.record(event)
	}
}

func (t *Tracker) record(event entity.ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := t.store.IncrementClicks(ctx, event.ShortCode); err != nil {
		t.logger.Error("failed to increment clicks",
			slog.String("short_code", event.ShortCode),
			slog.Any("err", err))
	}

	if err := t.store.SaveClickEvent(ctx, &event); err != nil {
		t.logger.Error("failed to save click event",
			slog.String("short_code", event.ShortCode),
			slog.Any("err", err))
	}
}
