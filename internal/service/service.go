// Package service implements the URL shortening core: create, resolve,
// deactivate and stats, the cache-aside protocol on the read path, expiry
// filtering, and the hand-off to the usage tracker.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/pavelzorin/shortlink/internal/cache"
	"github.com/pavelzorin/shortlink/internal/entity"
	"github.com/pavelzorin/shortlink/internal/shortcode"
	"github.com/pavelzorin/shortlink/internal/storage"
)

const (
	// maxRetries bounds collision retries for generated codes.
	maxRetries = 5

	// saltLength is the width of the nanoid salt appended to the seed on
	// each collision retry.
	saltLength = 8

	cacheKeyPrefix = "url:"
)

// usageTracker receives click events after successful resolutions.
// Track must not block.
type usageTracker interface {
	Track(event entity.ClickEvent)
}

// Visit carries the request metadata recorded with each resolution.
type Visit struct {
	SourceAddr string
	UserAgent  string
	Referrer   string
}

// cacheEntry is the envelope stored in the cache. It carries the record's
// expiry alongside the URL so cache hits can enforce expiry without a store
// round-trip.
type cacheEntry struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// URLService orchestrates the record store, the ephemeral cache, the code
// generator and the usage tracker. It is safe for concurrent use.
type URLService struct {
	store    storage.Store
	cache    cache.Cache
	codes    *shortcode.Generator
	tracker  usageTracker
	logger   *slog.Logger
	cacheTTL time.Duration
}

// New creates a URLService. cacheTTL is the default lifetime of cached
// resolutions; per-entry TTLs are capped so a cache entry never outlives the
// record's own expiry.
func New(store storage.Store, c cache.Cache, codes *shortcode.Generator, tracker usageTracker, logger *slog.Logger, cacheTTL time.Duration) *URLService {
	return &URLService{
		store:    store,
		cache:    c,
		codes:    codes,
		tracker:  tracker,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Shorten creates a shortened URL. If customAlias is non-empty it is
// validated and used verbatim; a collision on a custom alias is surfaced
// immediately as entity.ErrShortCodeExists. Generated codes are re-derived
// with a fresh salt on collision, bounded by maxRetries.
func (s *URLService) Shorten(ctx context.Context, originalURL, customAlias, ownerID string, expiresAt *time.Time) (*entity.URL, error) {
	const op = "service.URLService.Shorten"

	if err := validateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec := &entity.URL{
		OriginalURL: originalURL,
		OwnerID:     ownerID,
		ExpiresAt:   expiresAt,
	}

	if customAlias != "" {
		if err := shortcode.ValidateAlias(customAlias); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rec.ShortCode = customAlias
		rec.CustomAlias = true

		saved, err := s.store.Save(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		s.warmCache(ctx, saved)

		return saved, nil
	}

	seed := originalURL + "|" + strconv.FormatInt(time.Now().UnixNano(), 10)

	for i := 0; i < maxRetries; i++ {
		rec.ShortCode = s.codes.Generate(seed)

		saved, err := s.store.Save(ctx, rec)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				salt, saltErr := gonanoid.New(saltLength)
				if saltErr != nil {
					return nil, fmt.Errorf("%s: failed to generate salt: %w", op, saltErr)
				}
				seed = originalURL + "|" + salt

				continue
			}

			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		s.warmCache(ctx, saved)

		return saved, nil
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeSpaceExhausted)
}

// Resolve returns the original URL for shortCode using a cache-aside read:
// the cache is consulted first, and on a miss the store result repopulates
// it. Expired records are reported as entity.ErrURLExpired and never
// repopulate the cache. Every successful resolution is handed to the usage
// tracker without waiting on it.
func (s *URLService) Resolve(ctx context.Context, shortCode string, visit Visit) (string, error) {
	const op = "service.URLService.Resolve"

	now := time.Now()

	if data, err := s.cache.Get(ctx, cacheKeyPrefix+shortCode); err == nil {
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err == nil {
			if entry.ExpiresAt != nil && now.After(*entry.ExpiresAt) {
				if err := s.cache.Delete(ctx, cacheKeyPrefix+shortCode); err != nil {
					s.logger.Warn("failed to evict expired cache entry",
						slog.String("short_code", shortCode), slog.Any("err", err))
				}

				return "", fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
			}

			s.track(shortCode, visit, now)

			return entry.URL, nil
		}

		s.logger.Warn("malformed cache entry",
			slog.String("short_code", shortCode))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Cache transport failure. The cache is never the system of
		// record, so fall through to the store.
		s.logger.Warn("cache lookup failed",
			slog.String("short_code", shortCode), slog.Any("err", err))
	}

	rec, err := s.store.GetByShortCode(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if rec.Expired(now) {
		return "", fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
	}

	s.warmCache(ctx, rec)
	s.track(shortCode, visit, now)

	return rec.OriginalURL, nil
}

// Deactivate removes the URL from the store and then from the cache, in that
// order, so a concurrent resolve cannot resurrect the cache entry from a
// still-present store record.
func (s *URLService) Deactivate(ctx context.Context, shortCode string) error {
	const op = "service.URLService.Deactivate"

	if err := s.store.Delete(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	if err := s.cache.Delete(ctx, cacheKeyPrefix+shortCode); err != nil {
		return fmt.Errorf("%s: failed to evict cache entry: %w", op, err)
	}

	return nil
}

// Stats returns the record with its click counter. Pure store read: the
// cache is not involved, and expired records remain visible to their owners.
func (s *URLService) Stats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "service.URLService.Stats"

	rec, err := s.store.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return rec, nil
}

func (s *URLService) track(shortCode string, visit Visit, now time.Time) {
	s.tracker.Track(entity.ClickEvent{
		ShortCode:  shortCode,
		OccurredAt: now,
		SourceAddr: visit.SourceAddr,
		UserAgent:  visit.UserAgent,
		Referrer:   visit.Referrer,
	})
}

// warmCache stores the record's resolution under a TTL capped at the time
// remaining until the record expires. Failures are logged: a cold cache
// affects latency, not correctness.
func (s *URLService) warmCache(ctx context.Context, rec *entity.URL) {
	ttl := s.cacheTTL

	if rec.ExpiresAt != nil {
		remaining := time.Until(*rec.ExpiresAt)
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	entry := cacheEntry{
		URL:       rec.OriginalURL,
		ExpiresAt: rec.ExpiresAt,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("failed to encode cache entry",
			slog.String("short_code", rec.ShortCode), slog.Any("err", err))
		return
	}

	if err := s.cache.Set(ctx, cacheKeyPrefix+rec.ShortCode, data, ttl); err != nil {
		s.logger.Warn("failed to warm cache",
			slog.String("short_code", rec.ShortCode), slog.Any("err", err))
	}
}

func validateURL(originalURL string) error {
	u, err := url.Parse(originalURL)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return entity.ErrInvalidURL
	}

	return nil
}
