package localstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewPostgresStore(gdb), mock
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM "local_state" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).AddRow("theme", "dark", nil))

	v, err := s.Get(context.Background(), KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM "local_state" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))

	_, err := s.Get(context.Background(), KeyStatuses)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetUpserts(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO "local_state" .* ON CONFLICT \("key"\) DO UPDATE SET "value"="excluded"."value","updated_at"="excluded"."updated_at"`).
		WithArgs("theme", "light", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), KeyTheme, []byte("light")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM "local_state" WHERE key = \$1`).
		WithArgs("theme").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), KeyTheme))
	assert.NoError(t, mock.ExpectationsWereMet())
}
