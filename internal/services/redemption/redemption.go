// Package redemption реализует координатор погашения: одна попытка
// погашения от разбора QR-токена до создания ожидающего визита выполняется
// целиком в одной транзакции хранилища.
package redemption

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/qr"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/services/notifier"
)

// Cache описывает инвалидацию кеша пути чтения.
type Cache interface {
	Invalidate(key string) error
}

// Service — координатор погашения визитов.
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

// Redeem выполняет одну попытку погашения: разрешает подписку по токену,
// проверяет статус, салон и ёмкость пакета и создаёт ожидающий визит.
// Счётчики подписки здесь не меняются: единица списывается только при
// переводе визита в COMPLETED. Ёмкость резервируется логически — проверкой
// completed + pending против ёмкости пакета, поэтому отмена ожидающего
// визита не требует отката счётчиков.
//
// При конфликте сериализации операция повторяется целиком, бизнес-ошибки
// не повторяются.
func (s *Service) Redeem(ctx context.Context, token string, salonID int, serviceName string) (*models.RedeemResult, error) {
	var result *models.RedeemResult
	var salonOwnerID int
	var qrCode string

	err := ledger.WithRetry(ctx, s.log, func() error {
		result, salonOwnerID, qrCode = nil, 0, ""
		return s.store.WithTx(ctx, func(tx ledger.TxStore) error {
			res, ownerID, code, err := s.redeemTx(ctx, tx, token, salonID, serviceName)
			// qr_code нужен и при бизнес-отказе: часть отказов корректирует счётчики.
			qrCode = code
			if err != nil {
				return err
			}
			result, salonOwnerID = res, ownerID
			return nil
		})
	})

	if qrCode != "" {
		s.invalidateCache(qrCode)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("created pending visit",
		slog.Int("visit_id", result.Visit.ID),
		slog.Int("subscription_id", result.Visit.SubscriptionID),
		slog.Int("salon_id", salonID))

	if err := s.notifier.Notify(ctx, salonOwnerID, notifier.KindVisitCreated, result.Visit); err != nil {
		s.log.Warn("failed to send visit created notification", sl.Err(err))
	}
	return result, nil
}

// redeemTx — шаги одной попытки погашения внутри открытой транзакции.
func (s *Service) redeemTx(ctx context.Context, tx ledger.TxStore, token string, salonID int, serviceName string) (*models.RedeemResult, int, string, error) {
	sub, err := lockByToken(ctx, tx, token)
	if err != nil {
		return nil, 0, "", err
	}

	if sub.Status != models.SubscriptionActive {
		return nil, 0, sub.QRCode, ledger.InvalidState("subscription %d is %s, expected ACTIVE", sub.ID, sub.Status)
	}

	pkg, err := tx.GetPackage(ctx, sub.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, sub.QRCode, ledger.NotFound(fmt.Sprintf("package %d not found", sub.PackageID))
		}
		return nil, 0, sub.QRCode, err
	}
	if pkg.SalonID != salonID {
		return nil, 0, sub.QRCode, ledger.SalonMismatch(salonID, pkg.SalonID)
	}
	if pkg.VisitsCount <= 0 {
		return nil, 0, sub.QRCode, ledger.InvalidPackage(pkg.ID, pkg.VisitsCount)
	}

	// Авторитетная проверка: число завершённых визитов против ёмкости пакета.
	completed, err := tx.CountVisitsByStatus(ctx, sub.ID, models.VisitCompleted)
	if err != nil {
		return nil, 0, sub.QRCode, err
	}
	if completed >= pkg.VisitsCount {
		// Пакет исчерпан: попутно переводим подписку в EXPIRED с исправленными счётчиками.
		if err := tx.UpdateSubscriptionCounters(ctx, sub.ID, completed, 0, models.SubscriptionExpired); err != nil {
			return nil, 0, sub.QRCode, err
		}
		return nil, 0, sub.QRCode, ledger.VisitsExhausted(completed, 0, pkg.VisitsCount)
	}

	// Кешированные счётчики разошлись с ёмкостью пакета — сверяем перед продолжением.
	if sub.VisitsUsed+sub.VisitsRemaining != pkg.VisitsCount {
		s.log.Warn("subscription counters drifted, reconciling",
			slog.Int("subscription_id", sub.ID),
			slog.Int("visits_used", sub.VisitsUsed),
			slog.Int("visits_remaining", sub.VisitsRemaining),
			slog.Int("package_visits_count", pkg.VisitsCount))
		if err := ledger.ReconcileCounters(ctx, tx, sub, pkg); err != nil {
			return nil, 0, sub.QRCode, err
		}
		if sub.VisitsRemaining <= 0 {
			return nil, 0, sub.QRCode, ledger.VisitsExhausted(sub.VisitsUsed, 0, pkg.VisitsCount)
		}
	}

	// Ожидающие визиты ещё не списаны с кеша, поэтому резервируем ёмкость
	// проверкой completed + pending, а не счётчиками.
	pending, err := tx.CountVisitsByStatus(ctx, sub.ID, models.VisitPending)
	if err != nil {
		return nil, 0, sub.QRCode, err
	}
	if completed+pending >= pkg.VisitsCount {
		return nil, 0, sub.QRCode, ledger.VisitsExhausted(completed, pending, pkg.VisitsCount)
	}

	visit := models.Visit{
		SubscriptionID: sub.ID,
		SalonID:        salonID,
		VisitDate:      time.Now(),
		Status:         models.VisitPending,
	}
	if serviceName != "" {
		visit.ServiceName = &serviceName
	}
	visitID, err := tx.CreateVisit(ctx, visit)
	if err != nil {
		return nil, 0, sub.QRCode, err
	}
	visit.ID = visitID

	usedNames, err := tx.ListUsedServiceNames(ctx, sub.ID)
	if err != nil {
		return nil, 0, sub.QRCode, err
	}

	salon, err := tx.GetSalon(ctx, salonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, sub.QRCode, ledger.NotFound(fmt.Sprintf("salon %d not found", salonID))
		}
		return nil, 0, sub.QRCode, err
	}

	return &models.RedeemResult{
		Visit:            visit,
		UsedServiceNames: usedNames,
	}, salon.OwnerID, sub.QRCode, nil
}

// lockByToken разрешает токен в подписку и блокирует её строку: сначала
// JSON- и текстовая стратегии дают идентификатор, затем токен целиком
// сопоставляется с qr_code.
func lockByToken(ctx context.Context, tx ledger.TxStore, token string) (*models.Subscription, error) {
	if id, ok := qr.ParseSubscriptionID(token); ok {
		sub, err := tx.LockSubscription(ctx, id)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	sub, err := tx.LockSubscriptionByQR(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.NotFound("no subscription matches the token")
		}
		return nil, err
	}
	return sub, nil
}

func (s *Service) invalidateCache(qrCode string) {
	cacheKey := fmt.Sprintf("subscription:qr:%s", qrCode)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
