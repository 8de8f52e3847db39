package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

func subscriptionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "customer_id", "package_id", "qr_code", "visits_used",
		"visits_remaining", "start_date", "end_date", "status", "auto_renewal"})
}

func TestCreateSubscription(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(5, 3, "qr-abc", 0, 8, now, now.AddDate(0, 0, 180), models.SubscriptionActive, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := storage.CreateSubscription(context.Background(), models.Subscription{
		CustomerID:      5,
		PackageID:       3,
		QRCode:          "qr-abc",
		VisitsRemaining: 8,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, 180),
		Status:          models.SubscriptionActive,
	})

	require.NoError(t, err)
	assert.Equal(t, 42, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSubscription_UsesRowLock(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(42).
		WillReturnRows(subscriptionRows().
			AddRow(42, 5, 3, "qr-abc", 3, 5, now, now.AddDate(0, 3, 0), models.SubscriptionActive, false))

	sub, err := storage.LockSubscription(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 42, sub.ID)
	assert.Equal(t, "qr-abc", sub.QRCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSubscriptionByQR_NotFound(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT (.+) FROM subscriptions WHERE qr_code = \$1 FOR UPDATE`).
		WithArgs("no-such").
		WillReturnError(sql.ErrNoRows)

	_, err := storage.LockSubscriptionByQR(context.Background(), "no-such")

	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMarkExpired_ReturnsAffectedQRCodes(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE subscriptions\s+SET status = 'EXPIRED'\s+WHERE status = 'ACTIVE' AND end_date < \$1 AND id IN \(\$2, \$3, \$4\)\s+RETURNING qr_code`).
		WithArgs(now, 1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"qr_code"}).AddRow("qr-1").AddRow("qr-3"))

	codes, err := storage.MarkExpired(context.Background(), []int{1, 2, 3}, now)

	require.NoError(t, err)
	assert.Equal(t, []string{"qr-1", "qr-3"}, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkExpired_RowErrorNotSwallowed(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE subscriptions\s+SET status = 'EXPIRED'`).
		WithArgs(now, 1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"qr_code"}).
			AddRow("qr-1").
			AddRow("qr-2").
			RowError(1, errors.New("connection reset")))

	codes, err := storage.MarkExpired(context.Background(), []int{1, 2}, now)

	require.Error(t, err)
	assert.Nil(t, codes)
}

func TestMarkExpired_EmptyListSkipsQuery(t *testing.T) {
	storage, mock := newMockStorage(t)

	codes, err := storage.MarkExpired(context.Background(), nil, time.Now())

	require.NoError(t, err)
	assert.Empty(t, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindExpiredActiveIDs(t *testing.T) {
	storage, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id FROM subscriptions\s+WHERE status = 'ACTIVE' AND end_date < \$1`).
		WithArgs(now, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7).AddRow(8))

	ids, err := storage.FindExpiredActiveIDs(context.Background(), now, 100)

	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, ids)
}

func TestUpdateSubscriptionCounters(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE subscriptions\s+SET visits_used = \$1, visits_remaining = \$2, status = \$3\s+WHERE id = \$4`).
		WithArgs(4, 4, models.SubscriptionActive, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := storage.UpdateSubscriptionCounters(context.Background(), 42, 4, 4, models.SubscriptionActive)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelledContext(t *testing.T) {
	storage, _ := newMockStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.GetSubscriptionByID(ctx, 42)
	assert.ErrorIs(t, err, context.Canceled)
}
