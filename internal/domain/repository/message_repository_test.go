package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"messagely/internal/common"
	"messagely/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgMessageRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)
	sent := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+messages\s*\(from_username,\s*to_username,\s*body,\s*sent_at\).*RETURNING\s+id$`).
		WithArgs("alice", "bob", "hi", sent).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

	msg := &model.Message{FromUsername: "alice", ToUsername: "bob", Body: "hi", SentAt: sent}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.Equal(t, int64(17), msg.ID)
}

func TestPgMessageRepository_Create_UnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)

	mock.ExpectQuery(`INSERT\s+INTO\s+messages`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Create(context.Background(), &model.Message{FromUsername: "alice", ToUsername: "nobody"})
	assert.ErrorIs(t, err, common.ErrUnknownUser)
}

func TestPgMessageRepository_FindDetailByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)
	sent := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cols := []string{"id", "body", "sent_at", "read_at",
		"username", "first_name", "last_name", "phone",
		"username", "first_name", "last_name", "phone"}
	mock.ExpectQuery(`(?s)FROM\s+messages\s+AS\s+m\s+JOIN\s+users\s+AS\s+f.*JOIN\s+users\s+AS\s+t.*WHERE\s+m\.id\s*=\s*\$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(5), "hi", sent, nil,
			"alice", "Alice", "A", "111", "bob", "Bob", "B", "222"))

	d, err := repo.FindDetailByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.ID)
	assert.Nil(t, d.ReadAt)
	assert.Equal(t, model.UserSummary{Username: "alice", FirstName: "Alice", LastName: "A", Phone: "111"}, d.From)
	assert.Equal(t, model.UserSummary{Username: "bob", FirstName: "Bob", LastName: "B", Phone: "222"}, d.To)
}

func TestPgMessageRepository_FindDetailByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)

	mock.ExpectQuery(`FROM\s+messages`).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindDetailByID(context.Background(), 99)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgMessageRepository_ListSentBy(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)
	sent := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	read := sent.Add(time.Minute)

	mock.ExpectQuery(`(?s)JOIN\s+users\s+AS\s+t\s+ON\s+t\.username\s*=\s*m\.to_username\s+WHERE\s+m\.from_username\s*=\s*\$1\s+ORDER\s+BY\s+m\.id`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body", "sent_at", "read_at", "username", "first_name", "last_name", "phone"}).
			AddRow(int64(1), "one", sent, read, "bob", "Bob", "B", "222").
			AddRow(int64(2), "two", sent, nil, "carol", "Carol", "C", "333"))

	out, err := repo.ListSentBy(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].ReadAt)
	assert.Equal(t, read, *out[0].ReadAt)
	assert.Equal(t, "bob", out[0].To.Username)
	assert.Nil(t, out[1].ReadAt)
	assert.Equal(t, "carol", out[1].To.Username)
}

func TestPgMessageRepository_ListReceivedBy_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)

	mock.ExpectQuery(`(?s)WHERE\s+m\.to_username\s*=\s*\$1`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body", "sent_at", "read_at", "username", "first_name", "last_name", "phone"}))

	out, err := repo.ListReceivedBy(context.Background(), "bob")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPgMessageRepository_MarkRead_FirstRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^UPDATE\s+messages\s+SET\s+read_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+read_at\s+IS\s+NULL\s+RETURNING\s+id,\s*read_at$`).
		WithArgs(int64(3), at).
		WillReturnRows(sqlmock.NewRows([]string{"id", "read_at"}).AddRow(int64(3), at))

	receipt, changed, err := repo.MarkRead(context.Background(), 3, at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, &model.ReadReceipt{ID: 3, ReadAt: at}, receipt)
}

func TestPgMessageRepository_MarkRead_AlreadyRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)
	first := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	mock.ExpectQuery(`UPDATE\s+messages`).WithArgs(int64(3), later).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*from_username.*FROM\s+messages\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "from_username", "to_username", "body", "sent_at", "read_at"}).
			AddRow(int64(3), "alice", "bob", "hi", first.Add(-time.Hour), first))

	receipt, changed, err := repo.MarkRead(context.Background(), 3, later)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, receipt.ReadAt)
}

func TestPgMessageRepository_MarkRead_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)
	at := time.Now()

	mock.ExpectQuery(`UPDATE\s+messages`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM\s+messages\s+WHERE\s+id`).WillReturnError(sql.ErrNoRows)

	_, _, err := repo.MarkRead(context.Background(), 42, at)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgMessageRepository_MarkRead_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgMessageRepository(db)

	mock.ExpectQuery(`UPDATE\s+messages`).WillReturnError(errors.New("db err"))

	_, _, err := repo.MarkRead(context.Background(), 1, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db err")
}
