package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"chargedesk/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestChargeRangeRepository_UpdateStatusIfCurrent(t *testing.T) {
	changes := map[string]interface{}{"approval_status": model.ApprovalPendingCEO}

	t.Run("applies when status matches", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewChargeRangeRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "charge_ranges" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatusIfCurrent(context.Background(), uuid.New(), model.ApprovalPendingFinance, changes)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale when no row matched", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewChargeRangeRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "charge_ranges" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatusIfCurrent(context.Background(), uuid.New(), model.ApprovalPendingFinance, changes)
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error passes through", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewChargeRangeRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "charge_ranges" SET`)).
			WillReturnError(errors.New("connection reset"))

		err := repo.UpdateStatusIfCurrent(context.Background(), uuid.New(), model.ApprovalPendingFinance, changes)
		assert.ErrorContains(t, err, "connection reset")
		assert.NotErrorIs(t, err, ErrStaleState)
	})
}

func TestChargeRangeRepository_SetActiveRequiresApproved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChargeRangeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "charge_ranges" SET`)).
		WithArgs(false, sqlmock.AnyArg(), sqlmock.AnyArg(), model.ApprovalApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChargeRangeRepository_DeleteOnlyFromAllowedStatus(t *testing.T) {
	t.Run("removes matching row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewChargeRangeRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "charge_ranges" WHERE id = $1 AND approval_status IN ($2,$3)`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), uuid.New(), model.ApprovalDraft, model.ApprovalRejected)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale when status moved on", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewChargeRangeRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "charge_ranges"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), uuid.New(), model.ApprovalDraft, model.ApprovalRejected)
		assert.ErrorIs(t, err, ErrStaleState)
	})
}

func TestChargeRangeRepository_CountOverlappingEligible(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChargeRangeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "charge_ranges"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountOverlappingEligible(context.Background(), uuid.New(),
		decimal.NewFromInt(500), decimal.NewFromInt(10000), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionTypeRepository_FindByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionTypeRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "transaction_types" WHERE code = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "description", "is_active", "created_at", "updated_at"}).
			AddRow(id.String(), "SIMBA_TO_SIMBA", "Simba to Simba", nil, true, now, now))

	tt, err := repo.FindByCode(context.Background(), "SIMBA_TO_SIMBA")
	require.NoError(t, err)
	assert.Equal(t, id, tt.ID)
	assert.True(t, tt.IsActive)
	assert.Nil(t, tt.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionTypeRepository_FindByCodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionTypeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "transaction_types"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByCode(context.Background(), "MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransactionTypeRepository_LockByIDUsesRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionTypeRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}).AddRow(id.String(), "C2B", "Customer to Business"))

	tt, err := repo.LockByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "C2B", tt.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RunInTx(t *testing.T) {
	t.Run("commits and exposes tx to repositories", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)
		repo := NewChargeRangeRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "charge_ranges" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
			assert.True(t, InTx(txCtx))
			return repo.UpdateStatusIfCurrent(txCtx, uuid.New(), model.ApprovalDraft,
				map[string]interface{}{"approval_status": model.ApprovalPendingFinance})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)
		repo := NewChargeRangeRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "charge_ranges" SET`)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
			return repo.UpdateStatusIfCurrent(txCtx, uuid.New(), model.ApprovalDraft,
				map[string]interface{}{"approval_status": model.ApprovalPendingFinance})
		})
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.RunInTx(context.Background(), func(outer context.Context) error {
			return tm.RunInTx(outer, func(inner context.Context) error {
				assert.True(t, InTx(inner))
				return nil
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
