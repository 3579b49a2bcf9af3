package storage_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*storage.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS client_records").WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := storage.NewPostgresStore(context.Background(), sqlx.NewDb(db, "postgres"), "session-1")
	require.NoError(t, err)
	return s, mock
}

func TestNewPostgresStore(t *testing.T) {
	_, mock := newMockStore(t)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_RequiresScope(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = storage.NewPostgresStore(context.Background(), sqlx.NewDb(db, "postgres"), "")
	require.Error(t, err)
}

func TestPostgresStorePutAndGet(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO client_records").
		WithArgs("session-1", "motzkin_cart", []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Put(ctx, "motzkin_cart", []byte(`[]`)))

	rows := sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[]`))
	mock.ExpectQuery("SELECT value FROM client_records WHERE scope = \\$1 AND key = \\$2").
		WithArgs("session-1", "motzkin_cart").
		WillReturnRows(rows)

	got, err := s.Get(ctx, "motzkin_cart")
	require.NoError(t, err)
	require.Equal(t, "[]", string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM client_records").
		WithArgs("session-1", "identity").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "identity")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM client_records").
		WithArgs("session-1", "identity").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "identity"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePutError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO client_records").WillReturnError(sql.ErrConnDone)

	err := s.Put(context.Background(), "identity", []byte(`{}`))
	require.Error(t, err)
	require.ErrorIs(t, err, sql.ErrConnDone)
}
