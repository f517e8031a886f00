package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const sentinel = `SELECT to_regclass\('public.questions'\) IS NOT NULL`

func TestEnsureMigrated_Skip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	core, logs := observer.New(zap.InfoLevel)
	err = EnsureMigrated(context.Background(), db, zap.New(core))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, logs.FilterMessage("db_migration_skip").Len())
}

func TestEnsureMigrated_RunsAllSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS questions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_questions_bucket_key`).WillReturnResult(sqlmock.NewResult(0, 0))

	core, logs := observer.New(zap.InfoLevel)
	err = EnsureMigrated(context.Background(), db, zap.New(core))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, len(steps), logs.FilterMessage("db_migration_step").Len())
	assert.Equal(t, 1, logs.FilterMessage("db_migration_success").Len())
}

func TestEnsureMigrated_StepFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREATE EXTENSION`).WillReturnError(errors.New("permission denied"))

	err = EnsureMigrated(context.Background(), db, zap.NewNop())

	assert.ErrorContains(t, err, "migration step create_extension_pgcrypto failed: permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SentinelFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(sentinel).WillReturnError(errors.New("connection reset"))

	err = EnsureMigrated(context.Background(), db, zap.NewNop())

	assert.ErrorContains(t, err, "failed to check sentinel table")
}
