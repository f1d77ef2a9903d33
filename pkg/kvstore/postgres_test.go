package kvstore

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgres(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_entries WHERE key = $1")).
		WithArgs("currentUser").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"name":"maria","count":2}`)))

	var got sample
	require.NoError(t, store.Get(context.Background(), "currentUser", &got))
	assert.Equal(t, "maria", got.Name)
	assert.Equal(t, 2, got.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetMissingKey(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_entries WHERE key = $1")).
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	var got sample
	err := store.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSet(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("registeredUsers", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "registeredUsers", []sample{{Name: "maria"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	store, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_entries WHERE key = $1")).
		WithArgs("currentUser").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "currentUser"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
