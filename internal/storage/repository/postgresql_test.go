package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Storage{DB: db, queries: queries{db: db}}, mock
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE visits SET status = \$1 WHERE id = \$2`).
		WithArgs(models.VisitConfirmed, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := storage.WithTx(context.Background(), func(tx ledger.TxStore) error {
		return tx.UpdateVisitStatus(context.Background(), 11, models.VisitConfirmed)
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackAndKeepsDomainError(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	businessErr := ledger.InvalidState("subscription 42 is CANCELLED, expected ACTIVE")
	err := storage.WithTx(context.Background(), func(ledger.TxStore) error {
		return businessErr
	})

	assert.Equal(t, ledger.KindInvalidState, ledger.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_SerializationFailureIsTransient(t *testing.T) {
	storage, mock := newMockStorage(t)

	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE visits`).WillReturnError(pgErr)
	mock.ExpectRollback()

	err := storage.WithTx(context.Background(), func(tx ledger.TxStore) error {
		return tx.UpdateVisitStatus(context.Background(), 11, models.VisitConfirmed)
	})

	assert.True(t, ledger.IsTransient(err))
}

func TestWithTx_DeadlockIsTransient(t *testing.T) {
	storage, mock := newMockStorage(t)

	pgErr := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE visits`).WillReturnError(pgErr)
	mock.ExpectRollback()

	err := storage.WithTx(context.Background(), func(tx ledger.TxStore) error {
		return tx.UpdateVisitStatus(context.Background(), 11, models.VisitConfirmed)
	})

	assert.True(t, ledger.IsTransient(err))
}

func TestWithTx_PlainErrorIsNotTransient(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE visits`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := storage.WithTx(context.Background(), func(tx ledger.TxStore) error {
		return tx.UpdateVisitStatus(context.Background(), 11, models.VisitConfirmed)
	})

	require.Error(t, err)
	assert.False(t, ledger.IsTransient(err))
}
