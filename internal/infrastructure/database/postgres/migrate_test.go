package postgres

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE loans")
	assert.Contains(t, string(body), "CREATE TABLE udhari_accounts")
}

func TestApplyMigrations(t *testing.T) {
	files := fstest.MapFS{
		"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"migrations/002_b.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	}

	t.Run("applies only pending files in order", func(t *testing.T) {
		ctx, mockPool := newMockPool(t)
		mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mockPool.ExpectQuery("SELECT EXISTS").WithArgs("001_a.sql").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mockPool.ExpectQuery("SELECT EXISTS").WithArgs("002_b.sql").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mockPool.ExpectBegin()
		mockPool.ExpectExec("CREATE TABLE b").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mockPool.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_b.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, applyMigrations(ctx, mockPool, files, logger))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("failed migration rolls back", func(t *testing.T) {
		ctx, mockPool := newMockPool(t)
		mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mockPool.ExpectQuery("SELECT EXISTS").WithArgs("001_a.sql").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mockPool.ExpectBegin()
		mockPool.ExpectExec("CREATE TABLE a").WillReturnError(errors.New("syntax error"))
		mockPool.ExpectRollback()

		err := applyMigrations(ctx, mockPool, files, logger)
		assert.ErrorContains(t, err, "migration 001_a.sql failed")
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}
