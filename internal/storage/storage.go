// Package storage defines the record store port: durable persistence for URL
// records and click events. The store is a dumb persistence layer — it
// enforces short code uniqueness but performs no expiry filtering; that is
// the service's job.
package storage

import (
	"context"

	"github.com/pavelzorin/shortlink/internal/entity"
)

// Store persists URL records and click events.
type Store interface {
	// Save persists a new URL record and returns it with store-assigned
	// fields populated. Save is atomic with respect to short code
	// uniqueness: of two concurrent saves with the same code, at most one
	// succeeds and the other gets entity.ErrShortCodeExists.
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)

	// GetByShortCode returns the record as last durably written, or
	// entity.ErrURLNotFound. Expired records are returned as-is.
	GetByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)

	// Delete removes the record, or returns entity.ErrURLNotFound.
	Delete(ctx context.Context, shortCode string) error

	// IncrementClicks bumps the record's click counter. Best effort.
	IncrementClicks(ctx context.Context, shortCode string) error

	// SaveClickEvent appends a click event. Events are never mutated.
	SaveClickEvent(ctx context.Context, event *entity.ClickEvent) error
}
