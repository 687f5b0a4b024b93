package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockBatchRepo(t *testing.T) (*GormBatchRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormBatchRepository(gormDB), mock, mockDB
}

func mockBatch(t *testing.T) *inventory.Batch {
	t.Helper()
	batch, err := inventory.NewBatch(
		uuid.New(), inventory.SubjectKindProduct,
		inventory.LocationTypeShop, uuid.New(),
		10, decimal.NewFromInt(150),
	)
	require.NoError(t, err)
	return batch
}

func TestUpdateQuantityWithVersion(t *testing.T) {
	t.Run("commits when the version guard matches", func(t *testing.T) {
		repo, mock, mockDB := newMockBatchRepo(t)
		defer mockDB.Close()

		batch := mockBatch(t)
		require.NoError(t, batch.Consume(4)) // version 1 -> 2

		mock.ExpectExec(`UPDATE "stock_batches" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateQuantityWithVersion(context.Background(), batch)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when no row matched the guard", func(t *testing.T) {
		repo, mock, mockDB := newMockBatchRepo(t)
		defer mockDB.Close()

		batch := mockBatch(t)
		require.NoError(t, batch.Consume(4))

		// a concurrent writer already bumped the version, zero rows match
		mock.ExpectExec(`UPDATE "stock_batches" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateQuantityWithVersion(context.Background(), batch)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		repo, mock, mockDB := newMockBatchRepo(t)
		defer mockDB.Close()

		batch := mockBatch(t)
		require.NoError(t, batch.Consume(4))

		mock.ExpectExec(`UPDATE "stock_batches" SET`).
			WillReturnError(sql.ErrConnDone)

		err := repo.UpdateQuantityWithVersion(context.Background(), batch)

		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestFindByID(t *testing.T) {
	t.Run("maps a missing row to the not-found sentinel", func(t *testing.T) {
		repo, mock, mockDB := newMockBatchRepo(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT .* FROM "stock_batches"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), id)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestFindActiveBySubject(t *testing.T) {
	t.Run("orders by creation time then id", func(t *testing.T) {
		repo, mock, mockDB := newMockBatchRepo(t)
		defer mockDB.Close()

		subjectID := uuid.New()
		mock.ExpectQuery(`SELECT .* FROM "stock_batches" WHERE subject_id = \$1 AND status = \$2.*ORDER BY created_at asc, id asc`).
			WithArgs(subjectID, inventory.BatchStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindActiveBySubject(context.Background(), subjectID, nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("adds the location guard when scoped", func(t *testing.T) {
		repo, mock, mockDB := newMockBatchRepo(t)
		defer mockDB.Close()

		subjectID := uuid.New()
		loc := &inventory.LocationRef{Type: inventory.LocationTypeShop, ID: uuid.New()}
		mock.ExpectQuery(`SELECT .* FROM "stock_batches" WHERE .*location_type = \$3 AND location_id = \$4`).
			WithArgs(subjectID, inventory.BatchStatusActive, loc.Type, loc.ID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindActiveBySubject(context.Background(), subjectID, loc)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
