package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

// newDryRunDB builds SQL without ever touching a server.
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost port=5432 user=mailsync password=mailsync dbname=mailsync sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestEmailRepository_UpsertKeyedByAccountAndMessageID(t *testing.T) {
	db := newDryRunDB(t)
	repo := &emailRepository{db: db}
	email := &models.Email{
		AccountID: "account_1",
		MessageID: "<abc@prospect.com>",
		Folder:    "INBOX",
		Subject:   "Re: demo",
	}

	stmt := repo.upsert(db, email).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `INSERT INTO "emails"`)
	assert.Contains(t, sql, `ON CONFLICT ("account_id","message_id") DO UPDATE SET`)
	assert.Contains(t, sql, `"subject"="excluded"."subject"`)
	assert.NotContains(t, sql, `"category"="excluded"."category"`)
	assert.NotContains(t, sql, `"read"="excluded"."read"`)
	assert.Contains(t, sql, `RETURNING "id"`)

	// BeforeCreate filled the defaults
	assert.NotEmpty(t, email.ID)
	assert.Equal(t, enum.EmailUncategorized, email.Category)
}

// newMockDB runs statements against sqlmock so returned rows reach the model.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestEmailRepository_IndexMessageAdoptsSurvivingRowID(t *testing.T) {
	// Arrange: the mail was indexed before under another id
	db, mock := newMockDB(t)
	repo := NewEmailRepository(db)
	email := &models.Email{
		ID:        "email_reparsed",
		AccountID: "account_1",
		MessageID: "<abc@prospect.com>",
		Folder:    "INBOX",
		Subject:   "Re: demo",
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "emails"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("email_original"))

	// Act
	err := repo.IndexMessage(context.Background(), email)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "email_original", email.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRepository_IndexMessageKeepsNewID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEmailRepository(db)
	email := &models.Email{
		ID:        "email_new",
		AccountID: "account_1",
		MessageID: "<new@prospect.com>",
		Folder:    "INBOX",
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "emails"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("email_new"))

	require.NoError(t, repo.IndexMessage(context.Background(), email))
	assert.Equal(t, "email_new", email.ID)
}

func TestEmailRepository_IndexMessageError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEmailRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "emails"`)).
		WillReturnError(errors.New("connection reset"))

	err := repo.IndexMessage(context.Background(), &models.Email{AccountID: "account_1", MessageID: "<x@y>"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index email")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestEmailRepository_SearchScope(t *testing.T) {
	db := newDryRunDB(t)
	repo := &emailRepository{db: db}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	query := dto.SearchQuery{
		Query:     "pricing",
		AccountID: "account_1",
		Category:  enum.EmailInterested,
		From:      &from,
	}
	query.Normalize()

	var emails []*models.Email
	stmt := repo.pageScope(repo.searchScope(db, query), query).Find(&emails).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `FROM "emails"`)
	assert.Contains(t, sql, "account_id = ")
	assert.Contains(t, sql, "category = ")
	assert.Contains(t, sql, "date >= ")
	assert.Contains(t, sql, "(subject ILIKE ")
	assert.Contains(t, sql, "ORDER BY date DESC")
	assert.NotContains(t, sql, "folder = ")
	assert.Contains(t, stmt.Vars, "%pricing%")
	assert.Contains(t, stmt.Vars, "Interested")
}

func TestSanitizeUpdates(t *testing.T) {
	updates, err := sanitizeUpdates(map[string]interface{}{"category": enum.EmailMeetingBooked})
	require.NoError(t, err)
	assert.Equal(t, "Meeting Booked", updates["category"])
	assert.Contains(t, updates, "updated_at")

	_, err = sanitizeUpdates(map[string]interface{}{"category": enum.EmailCategory("Hot")})
	assert.Error(t, err)

	_, err = sanitizeUpdates(map[string]interface{}{"message_id": "x"})
	assert.Error(t, err)

	_, err = sanitizeUpdates(nil)
	assert.Error(t, err)
}

func TestSearchQuery_Paging(t *testing.T) {
	query := dto.SearchQuery{Page: 3, Limit: 500}
	query.Normalize()

	assert.Equal(t, dto.MaxSearchLimit, query.Limit)
	assert.Equal(t, 200, query.Offset())

	empty := dto.SearchQuery{}
	empty.Normalize()
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, dto.DefaultSearchLimit, empty.Limit)
}
