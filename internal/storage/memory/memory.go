// Package memory implements the record store with sharded in-process maps.
// It backs the dev profile and the test suites; the per-shard mutex held
// across the existence check and the insert is what makes Save atomic with
// respect to short code uniqueness.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pavelzorin/shortlink/internal/entity"
)

const shardCount = 32

type shard struct {
	mu   sync.RWMutex
	urls map[string]*entity.URL
}

// Store is a sharded in-memory record store. Writes for one short code never
// block reads or writes for codes on other shards.
type Store struct {
	shards [shardCount]*shard
	nextID atomic.Int64

	eventsMu sync.Mutex
	events   []entity.ClickEvent
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{urls: make(map[string]*entity.URL)}
	}

	return s
}

func (s *Store) shardFor(shortCode string) *shard {
	h := fnv.New32a()
	h.Write([]byte(shortCode))
	return s.shards[h.Sum32()%shardCount]
}

func copyURL(url *entity.URL) *entity.URL {
	cp := *url
	if url.ExpiresAt != nil {
		expiresAt := *url.ExpiresAt
		cp.ExpiresAt = &expiresAt
	}

	return &cp
}

// Save persists a new URL record, assigning its ID and creation time.
// Returns entity.ErrShortCodeExists if the short code is already taken.
func (s *Store) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "storage.memory.Store.Save"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := copyURL(url)
	rec.ID = s.nextID.Add(1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	sh := s.shardFor(rec.ShortCode)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.urls[rec.ShortCode]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}
	sh.urls[rec.ShortCode] = rec

	return copyURL(rec), nil
}

// GetByShortCode returns the record as last written. No expiry filtering.
func (s *Store) GetByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.memory.Store.GetByShortCode"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := s.shardFor(shortCode)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.urls[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return copyURL(rec), nil
}

// Delete removes the record for shortCode.
func (s *Store) Delete(ctx context.Context, shortCode string) error {
	const op = "storage.memory.Store.Delete"

	if err := ctx.Err(); err != nil {
		return err
	}

	sh := s.shardFor(shortCode)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.urls[shortCode]; !ok {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}
	delete(sh.urls, shortCode)

	return nil
}

// IncrementClicks bumps the click counter for shortCode. A missing record is
// not an error: the record may have been deleted since the resolution.
func (s *Store) IncrementClicks(ctx context.Context, shortCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sh := s.shardFor(shortCode)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if rec, ok := sh.urls[shortCode]; ok {
		rec.ClickCount++
	}

	return nil
}

// SaveClickEvent appends a click event.
func (s *Store) SaveClickEvent(ctx context.Context, event *entity.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.eventsMu.Lock()
	s.events = append(s.events, *event)
	s.eventsMu.Unlock()

	return nil
}

// ClickEvents returns a snapshot of the events recorded for shortCode.
func (s *Store) ClickEvents(shortCode string) []entity.ClickEvent {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	var events []entity.ClickEvent
	for _, event := range s.events {
		if event.ShortCode == shortCode {
			events = append(events, event)
		}
	}

	return events
}
