package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/migrations"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/services/notifier"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/services/redemption"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/services/visitstatus"
)

// noopCache подходит сервисам, которым в тесте нечего инвалидировать.
type noopCache struct{}

func (noopCache) Invalidate(string) error { return nil }

func setupTestStorage(t *testing.T) *Storage {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("set RUN_INTEGRATION_TESTS=1 to run integration tests with docker")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { storage.DB.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	return storage
}

func seedSubscription(t *testing.T, storage *Storage, visitsCount int) (*models.Subscription, int) {
	ctx := context.Background()

	var salonID int
	err := storage.DB.QueryRowContext(ctx,
		`INSERT INTO salons (owner_id, name) VALUES (100, 'Downtown') RETURNING id`).Scan(&salonID)
	require.NoError(t, err)

	var packageID int
	err = storage.DB.QueryRowContext(ctx,
		`INSERT INTO packages (salon_id, name, price, visits_count, validity_days)
		 VALUES ($1, 'Spa', 10000, $2, 180) RETURNING id`, salonID, visitsCount).Scan(&packageID)
	require.NoError(t, err)

	now := time.Now()
	id, err := storage.CreateSubscription(ctx, models.Subscription{
		CustomerID:      5,
		PackageID:       packageID,
		QRCode:          "it-qr-code",
		VisitsUsed:      0,
		VisitsRemaining: visitsCount,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, 180),
		Status:          models.SubscriptionActive,
	})
	require.NoError(t, err)

	sub, err := storage.GetSubscriptionByID(ctx, id)
	require.NoError(t, err)
	return sub, salonID
}

func TestVisitLifecycle(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	sub, salonID := seedSubscription(t, storage, 2)

	var visitID int
	err := storage.WithTx(ctx, func(tx ledger.TxStore) error {
		locked, err := tx.LockSubscriptionByQR(ctx, sub.QRCode)
		if err != nil {
			return err
		}
		visitID, err = tx.CreateVisit(ctx, models.Visit{
			SubscriptionID: locked.ID,
			SalonID:        salonID,
			VisitDate:      time.Now(),
			Status:         models.VisitPending,
		})
		return err
	})
	require.NoError(t, err)

	err = storage.WithTx(ctx, func(tx ledger.TxStore) error {
		if err := tx.UpdateVisitStatus(ctx, visitID, models.VisitCompleted); err != nil {
			return err
		}
		return tx.UpdateSubscriptionCounters(ctx, sub.ID, 1, 1, models.SubscriptionActive)
	})
	require.NoError(t, err)

	completed, err := storage.CountVisitsByStatus(ctx, sub.ID, models.VisitCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	updated, err := storage.GetSubscriptionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.VisitsUsed)
	assert.Equal(t, 1, updated.VisitsRemaining)
}

// Восемь конкурентных циклов погашение-завершение против пакета на один
// визит: списаться может ровно одна единица, остальные попытки получают
// бизнес-отказ. Строчные блокировки сериализуют попытки, поэтому второй
// визит не создаётся даже между созданием PENDING и его завершением.
func TestConcurrentRedemptionNoOverRedemption(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	sub, salonID := seedSubscription(t, storage, 1)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redeemService := redemption.New(storage, notifier.Noop{}, noopCache{}, logger)
	statusService := visitstatus.New(storage, notifier.Noop{}, noopCache{}, logger)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := redeemService.Redeem(ctx, sub.QRCode, salonID, "haircut")
			if err != nil {
				errs <- err
				return
			}
			_, err = statusService.Transition(ctx, res.Visit.ID, sub.CustomerID, models.VisitCompleted)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := ledger.KindOf(err)
		assert.Contains(t, []ledger.Kind{ledger.KindVisitsExhausted, ledger.KindInvalidState}, kind,
			"unexpected failure: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	completed, err := storage.CountVisitsByStatus(ctx, sub.ID, models.VisitCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	var total int
	err = storage.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM visits WHERE subscription_id = $1`, sub.ID).Scan(&total)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	updated, err := storage.GetSubscriptionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.VisitsUsed)
	assert.Equal(t, 0, updated.VisitsRemaining)
	assert.Equal(t, models.SubscriptionExpired, updated.Status)
}

func TestMarkExpiredIntegration(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	sub, _ := seedSubscription(t, storage, 2)

	// Подписка ещё действует: пометка не затрагивает её.
	codes, err := storage.MarkExpired(ctx, []int{sub.ID}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, codes)

	// После конца срока действия подписка попадает под пометку.
	codes, err = storage.MarkExpired(ctx, []int{sub.ID}, sub.EndDate.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{sub.QRCode}, codes)

	updated, err := storage.GetSubscriptionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, updated.Status)
}
