package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

func TestCreateVisit(t *testing.T) {
	storage, mock := newMockStorage(t)
	visitDate := time.Now()
	serviceName := "haircut"

	mock.ExpectQuery(`INSERT INTO visits`).
		WithArgs(42, 7, visitDate, "haircut", models.VisitPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := storage.CreateVisit(context.Background(), models.Visit{
		SubscriptionID: 42,
		SalonID:        7,
		VisitDate:      visitDate,
		ServiceName:    &serviceName,
		Status:         models.VisitPending,
	})

	require.NoError(t, err)
	assert.Equal(t, 11, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockVisit(t *testing.T) {
	storage, mock := newMockStorage(t)
	visitDate := time.Now()

	mock.ExpectQuery(`SELECT id, subscription_id, salon_id, visit_date, service_name, status\s+FROM visits WHERE id = \$1 FOR UPDATE`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subscription_id", "salon_id", "visit_date", "service_name", "status"}).
			AddRow(11, 42, 7, visitDate, nil, models.VisitPending))

	visit, err := storage.LockVisit(context.Background(), 11)

	require.NoError(t, err)
	assert.Equal(t, 42, visit.SubscriptionID)
	assert.Nil(t, visit.ServiceName)
	assert.Equal(t, models.VisitPending, visit.Status)
}

func TestCountVisitsByStatus(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM visits WHERE subscription_id = \$1 AND status = \$2`).
		WithArgs(42, models.VisitCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	count, err := storage.CountVisitsByStatus(context.Background(), 42, models.VisitCompleted)

	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCountCompletedVisitsExcluding(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM visits\s+WHERE subscription_id = \$1 AND status = 'COMPLETED' AND id <> \$2`).
		WithArgs(42, 11).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := storage.CountCompletedVisitsExcluding(context.Background(), 42, 11)

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestListUsedServiceNames(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT DISTINCT service_name FROM visits`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"service_name"}).AddRow("haircut").AddRow("manicure"))

	names, err := storage.ListUsedServiceNames(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, []string{"haircut", "manicure"}, names)
}

func TestListUsedServiceNames_RowErrorNotSwallowed(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT DISTINCT service_name FROM visits`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"service_name"}).
			AddRow("haircut").
			AddRow("manicure").
			RowError(1, errors.New("connection reset")))

	names, err := storage.ListUsedServiceNames(context.Background(), 42)

	require.Error(t, err)
	assert.Nil(t, names)
}

func TestListVisits_Pagination(t *testing.T) {
	storage, mock := newMockStorage(t)
	visitDate := time.Now()

	mock.ExpectQuery(`SELECT id, subscription_id, salon_id, visit_date, service_name, status\s+FROM visits\s+WHERE subscription_id = \$1\s+ORDER BY visit_date DESC, id DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(42, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subscription_id", "salon_id", "visit_date", "service_name", "status"}).
			AddRow(12, 42, 7, visitDate, nil, models.VisitCompleted).
			AddRow(11, 42, 7, visitDate.Add(-time.Hour), nil, models.VisitCancelled))

	visits, err := storage.ListVisits(context.Background(), 42, 20, 0)

	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, 12, visits[0].ID)
	assert.Equal(t, models.VisitCancelled, visits[1].Status)
}
