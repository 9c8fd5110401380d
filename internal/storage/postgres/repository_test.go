package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/pavelzorin/shortlink/internal/entity"
)

type StoreTestSuite struct {
	suite.Suite
	errUnknown      error
	errAffectedRows error
	columns         []string
	mock            sqlmock.Sqlmock
	store           *Store
}

func (suite *StoreTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.errAffectedRows = errors.New("affected rows error")
	suite.columns = []string{"id", "short_code", "original_url", "owner_id", "custom_alias", "click_count", "created_at", "expires_at"}
}

func (suite *StoreTestSuite) SetupSubTest() {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		suite.T().Fatalf("Failed to create mock database: %v", err)
	}
	suite.T().Cleanup(func() {
		mockDB.Close()
	})

	db := sqlx.NewDb(mockDB, "sqlmock")
	suite.T().Cleanup(func() {
		db.Close()
	})

	suite.mock = mock
	suite.store = NewStore(db)
}

func (suite *StoreTestSuite) TearDownSubTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
}

func (suite *StoreTestSuite) TestSave() {
	newURL := &entity.URL{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
	}

	suite.Run("short code exists", func() {
		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("abc123", "https://example.com", "", false, nil).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		url, err := suite.store.Save(context.Background(), newURL)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("abc123", "https://example.com", "", false, nil).
			WillReturnError(suite.errUnknown)

		url, err := suite.store.Save(context.Background(), newURL)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow(1, "abc123", "https://example.com", "", false, 0, time.Time{}, nil)

		suite.mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("abc123", "https://example.com", "", false, nil).
			WillReturnRows(rows)

		url, err := suite.store.Save(context.Background(), newURL)

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(int64(1), url.ID)
		suite.Equal("abc123", url.ShortCode)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Zero(url.ClickCount)
		suite.Nil(url.ExpiresAt)
	})
}

func (suite *StoreTestSuite) TestGetByShortCode() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("abc123").
			WillReturnError(sql.ErrNoRows)

		url, err := suite.store.GetByShortCode(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		url, err := suite.store.GetByShortCode(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success with expiry", func() {
		expiresAt := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(suite.columns).
			AddRow(1, "abc123", "https://example.com", "owner-1", true, 3, time.Time{}, expiresAt)

		suite.mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("abc123").
			WillReturnRows(rows)

		url, err := suite.store.GetByShortCode(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("abc123", url.ShortCode)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Equal("owner-1", url.OwnerID)
		suite.True(url.CustomAlias)
		suite.Equal(int64(3), url.ClickCount)
		suite.NotNil(url.ExpiresAt)
		suite.Equal(expiresAt, *url.ExpiresAt)
	})
}

func (suite *StoreTestSuite) TestDelete() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		err := suite.store.Delete(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("rows affected error", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewErrorResult(suite.errAffectedRows))

		err := suite.store.Delete(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errAffectedRows)
	})

	suite.Run("url not found", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.store.Delete(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.store.Delete(context.Background(), "abc123")

		suite.NoError(err)
	})
}

func (suite *StoreTestSuite) TestIncrementClicks() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`UPDATE urls`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		err := suite.store.IncrementClicks(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("missing record is not an error", func() {
		suite.mock.ExpectExec(`UPDATE urls`).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.store.IncrementClicks(context.Background(), "abc123")

		suite.NoError(err)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`UPDATE urls`).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.store.IncrementClicks(context.Background(), "abc123")

		suite.NoError(err)
	})
}

func (suite *StoreTestSuite) TestSaveClickEvent() {
	event := &entity.ClickEvent{
		ShortCode:  "abc123",
		OccurredAt: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
		SourceAddr: "203.0.113.7",
		UserAgent:  "curl/8.0",
		Referrer:   "https://ref.example.com",
	}

	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`INSERT INTO click_events`).
			WithArgs(event.ShortCode, event.OccurredAt, event.SourceAddr, event.UserAgent, event.Referrer).
			WillReturnError(suite.errUnknown)

		err := suite.store.SaveClickEvent(context.Background(), event)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`INSERT INTO click_events`).
			WithArgs(event.ShortCode, event.OccurredAt, event.SourceAddr, event.UserAgent, event.Referrer).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := suite.store.SaveClickEvent(context.Background(), event)

		suite.NoError(err)
	})
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
