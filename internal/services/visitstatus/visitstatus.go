// Package visitstatus реализует конечный автомат статуса визита —
// единственное место, где меняются счётчики visits_used/visits_remaining
// подписки. Переход в COMPLETED списывает единицу, отмена завершённого
// визита возвращает её обратно.
package visitstatus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/services/notifier"
)

// Cache описывает инвалидацию кеша пути чтения.
type Cache interface {
	Invalidate(key string) error
}

// Service — конечный автомат статуса визита.
type Service struct {
	store    ledger.Store
	notifier ledger.Notifier
	cache    Cache
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(store ledger.Store, n ledger.Notifier, cache Cache, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: n,
		cache:    cache,
		log:      log,
	}
}

// Transition переводит визит в новый статус. Актор должен быть клиентом
// подписки или владельцем салона визита. Смена статуса и связанные с ней
// изменения счётчиков подписки выполняются в одной транзакции; при
// конфликте сериализации операция повторяется целиком.
func (s *Service) Transition(ctx context.Context, visitID, actorID int, newStatus models.VisitStatus) (*models.Visit, error) {
	if !newStatus.Valid() {
		return nil, ledger.InvalidState("unknown visit status %q", string(newStatus))
	}

	var visit *models.Visit
	var customerID int
	var qrCode string
	var completed bool

	err := ledger.WithRetry(ctx, s.log, func() error {
		visit, customerID, qrCode, completed = nil, 0, "", false
		return s.store.WithTx(ctx, func(tx ledger.TxStore) error {
			v, custID, code, done, err := s.transitionTx(ctx, tx, visitID, actorID, newStatus)
			qrCode = code
			if err != nil {
				return err
			}
			visit, customerID, completed = v, custID, done
			return nil
		})
	})

	if qrCode != "" {
		s.invalidateCache(qrCode)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("visit status changed",
		slog.Int("visit_id", visit.ID),
		slog.String("status", string(newStatus)))

	if completed {
		if err := s.notifier.Notify(ctx, customerID, notifier.KindVisitCompleted, visit); err != nil {
			s.log.Warn("failed to send visit completed notification", sl.Err(err))
		}
	}
	return visit, nil
}

// transitionTx — шаги одного перехода внутри открытой транзакции.
// Возвращает визит, клиента подписки, qr_code и признак списания единицы.
func (s *Service) transitionTx(ctx context.Context, tx ledger.TxStore, visitID, actorID int, newStatus models.VisitStatus) (*models.Visit, int, string, bool, error) {
	visit, err := tx.LockVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, "", false, ledger.NotFound(fmt.Sprintf("visit %d not found", visitID))
		}
		return nil, 0, "", false, err
	}

	sub, err := tx.LockSubscription(ctx, visit.SubscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, "", false, ledger.NotFound(fmt.Sprintf("subscription %d not found", visit.SubscriptionID))
		}
		return nil, 0, "", false, err
	}

	salon, err := tx.GetSalon(ctx, visit.SalonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, "", false, ledger.NotFound(fmt.Sprintf("salon %d not found", visit.SalonID))
		}
		return nil, 0, "", false, err
	}
	if actorID != sub.CustomerID && actorID != salon.OwnerID {
		return nil, 0, sub.QRCode, false, ledger.Forbidden(actorID)
	}

	if !CanTransition(visit.Status, newStatus) {
		return nil, 0, sub.QRCode, false, ledger.InvalidState("cannot transition visit %d from %s to %s",
			visit.ID, visit.Status, newStatus)
	}

	var chargeApplied bool
	switch newStatus {
	case models.VisitCompleted:
		if err := s.completeTx(ctx, tx, sub, visit); err != nil {
			return nil, 0, sub.QRCode, false, err
		}
		chargeApplied = true
	case models.VisitCancelled:
		if err := s.cancelTx(ctx, tx, sub, visit); err != nil {
			return nil, 0, sub.QRCode, false, err
		}
	case models.VisitConfirmed:
		// Чистая смена статуса, счётчики не трогаются.
	}

	if err := tx.UpdateVisitStatus(ctx, visit.ID, newStatus); err != nil {
		return nil, 0, sub.QRCode, false, err
	}
	visit.Status = newStatus

	return visit, sub.CustomerID, sub.QRCode, chargeApplied, nil
}

// completeTx списывает одну единицу пакета при завершении визита.
// Финальная, необходимая проверка — авторитетное число завершённых визитов
// без учёта завершаемого: её нельзя обойти, даже если кешированные счётчики
// говорят обратное.
func (s *Service) completeTx(ctx context.Context, tx ledger.TxStore, sub *models.Subscription, visit *models.Visit) error {
	pkg, err := tx.GetPackage(ctx, sub.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.NotFound(fmt.Sprintf("package %d not found", sub.PackageID))
		}
		return err
	}
	if pkg.VisitsCount <= 0 {
		return ledger.InvalidPackage(pkg.ID, pkg.VisitsCount)
	}

	completed, err := tx.CountCompletedVisitsExcluding(ctx, sub.ID, visit.ID)
	if err != nil {
		return err
	}
	if completed+1 > pkg.VisitsCount {
		return ledger.VisitsExhausted(completed, 0, pkg.VisitsCount)
	}

	if sub.VisitsRemaining <= 0 {
		return ledger.VisitsExhausted(completed, 0, pkg.VisitsCount)
	}

	if sub.VisitsUsed+sub.VisitsRemaining != pkg.VisitsCount {
		s.log.Warn("subscription counters drifted, reconciling",
			slog.Int("subscription_id", sub.ID),
			slog.Int("visits_used", sub.VisitsUsed),
			slog.Int("visits_remaining", sub.VisitsRemaining),
			slog.Int("package_visits_count", pkg.VisitsCount))
		if err := ledger.ReconcileCounters(ctx, tx, sub, pkg); err != nil {
			return err
		}
		if sub.VisitsRemaining <= 0 {
			return ledger.VisitsExhausted(sub.VisitsUsed, 0, pkg.VisitsCount)
		}
	}

	newUsed := sub.VisitsUsed + 1
	newRemaining := sub.VisitsRemaining - 1
	status := sub.Status
	if newRemaining == 0 {
		status = models.SubscriptionExpired
	}
	if err := tx.UpdateSubscriptionCounters(ctx, sub.ID, newUsed, newRemaining, status); err != nil {
		return err
	}
	sub.VisitsUsed, sub.VisitsRemaining, sub.Status = newUsed, newRemaining, status
	return nil
}

// cancelTx возвращает единицу пакета, только если визит был завершён.
// Отмена ожидающего или подтверждённого визита счётчики не меняет:
// списания ещё не было.
func (s *Service) cancelTx(ctx context.Context, tx ledger.TxStore, sub *models.Subscription, visit *models.Visit) error {
	if visit.Status != models.VisitCompleted {
		return nil
	}

	newUsed := sub.VisitsUsed - 1
	if newUsed < 0 {
		newUsed = 0
	}
	newRemaining := sub.VisitsRemaining + 1

	status := sub.Status
	// Подписка, истёкшая только из-за исчерпания визитов, снова активна.
	if sub.Status == models.SubscriptionExpired && !time.Now().After(sub.EndDate) {
		status = models.SubscriptionActive
	}

	if err := tx.UpdateSubscriptionCounters(ctx, sub.ID, newUsed, newRemaining, status); err != nil {
		return err
	}
	sub.VisitsUsed, sub.VisitsRemaining, sub.Status = newUsed, newRemaining, status
	return nil
}

func (s *Service) invalidateCache(qrCode string) {
	cacheKey := fmt.Sprintf("subscription:qr:%s", qrCode)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
