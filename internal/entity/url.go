// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL along with its
// associated metadata, the ClickEvent struct for usage accounting, and the
// error taxonomy shared by all layers.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when a URL exists but its expiry time has passed.
	// It is distinct from ErrURLNotFound so callers can report the two cases differently.
	ErrURLExpired = errors.New("url expired")
	// ErrInvalidURL is returned when the original URL fails syntactic validation.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidAlias is returned when a custom alias violates the character or length policy.
	ErrInvalidAlias = errors.New("invalid alias")
	// ErrCodeSpaceExhausted is returned when collision retries for a generated short code are exhausted.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64      // ID is the unique identifier of the URL in the store.
	ShortCode   string     // ShortCode is the code used to shorten the original URL.
	OriginalURL string     // OriginalURL is the full URL that the short code resolves to. Immutable after creation.
	OwnerID     string     // OwnerID optionally identifies the creator of the URL.
	CustomAlias bool       // CustomAlias reports whether the short code was supplied by the caller.
	ClickCount  int64      // ClickCount is the number of times the shortened URL has been resolved.
	CreatedAt   time.Time  // CreatedAt is the timestamp when the URL was created.
	ExpiresAt   *time.Time // ExpiresAt is the expiry time of the URL. Nil means the URL never expires.
}

// Expired reports whether the URL's expiry time has passed.
// URLs without an expiry time never expire.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}

// ClickEvent records a single resolution of a shortened URL.
// Events are append-only and never mutated or deleted by the core.
type ClickEvent struct {
	ShortCode  string    // ShortCode is the code that was resolved.
	OccurredAt time.Time // OccurredAt is the time of the resolution.
	SourceAddr string    // SourceAddr is the network address of the visitor.
	UserAgent  string    // UserAgent is the visitor's user agent string.
	Referrer   string    // Referrer is the page the visitor came from, if any.
}
