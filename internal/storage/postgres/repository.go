// Package postgres implements the record store on top of PostgreSQL.
// Short code uniqueness is enforced by a unique index on urls.short_code.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pavelzorin/shortlink/internal/entity"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type urlRow struct {
	ID          int64      `db:"id"`
	ShortCode   string     `db:"short_code"`
	OriginalURL string     `db:"original_url"`
	OwnerID     string     `db:"owner_id"`
	CustomAlias bool       `db:"custom_alias"`
	ClickCount  int64      `db:"click_count"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
}

func (r *urlRow) toURL() *entity.URL {
	return &entity.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		OwnerID:     r.OwnerID,
		CustomAlias: r.CustomAlias,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// Store is a PostgreSQL-backed record store.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db: db,
	}
}

// Save inserts a new URL record. A unique index violation on short_code maps
// to entity.ErrShortCodeExists.
func (s *Store) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "storage.postgres.Store.Save"

	row := new(urlRow)
	query := `INSERT INTO urls(short_code, original_url, owner_id, custom_alias, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`

	err := s.db.GetContext(ctx, row, query,
		url.ShortCode, url.OriginalURL, url.OwnerID, url.CustomAlias, url.ExpiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to save url record: %w", op, err)
	}

	return row.toURL(), nil
}

// GetByShortCode returns the record as last written. No expiry filtering.
func (s *Store) GetByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.postgres.Store.GetByShortCode"

	row := new(urlRow)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := s.db.GetContext(ctx, row, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return row.toURL(), nil
}

// Delete removes the record for shortCode.
func (s *Store) Delete(ctx context.Context, shortCode string) error {
	const op = "storage.postgres.Store.Delete"

	query := `DELETE FROM urls WHERE short_code = $1`

	res, err := s.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

// IncrementClicks bumps the click counter for shortCode. Missing records are
// not an error: the counter is best effort and the record may have been
// deleted since the resolution.
func (s *Store) IncrementClicks(ctx context.Context, shortCode string) error {
	const op = "storage.postgres.Store.IncrementClicks"

	query := `UPDATE urls SET click_count = click_count + 1 WHERE short_code = $1`

	if _, err := s.db.ExecContext(ctx, query, shortCode); err != nil {
		return fmt.Errorf("%s: failed to increment clicks: %w", op, err)
	}

	return nil
}

// SaveClickEvent appends a click event.
func (s *Store) SaveClickEvent(ctx context.Context, event *entity.ClickEvent) error {
	const op = "storage.postgres.Store.SaveClickEvent"

	query := `INSERT INTO click_events(short_code, occurred_at, source_addr, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		event.ShortCode, event.OccurredAt, event.SourceAddr, event.UserAgent, event.Referrer)
	if err != nil {
		return fmt.Errorf("%s: failed to save click event: %w", op, err)
	}

	return nil
}
