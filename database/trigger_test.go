package database

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestInstallUpdatedAtTrigger(t *testing.T) {
	gormDB, mock := setupMockDB(t)

	mock.ExpectExec(`(?s)NEW\.updated_at = NOW\(\).*BEFORE UPDATE ON orders`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, installUpdatedAtTrigger(gormDB))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallUpdatedAtTrigger_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE OR REPLACE FUNCTION set_orders_updated_at()")).
		WillReturnError(errors.New("permission denied"))

	err := installUpdatedAtTrigger(gormDB)
	assert.ErrorContains(t, err, "install updated_at trigger")
}
