// Package subscription реализует реестр подписок: покупку пакета, путь
// чтения по QR-коду, отмену клиентом и массовое истечение по дате для
// внешнего планировщика.
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/qr"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// cacheTTL — время жизни кешированной сводки подписки. Сводка
// инвалидируется при каждой мутации счётчиков, TTL — страховка.
const cacheTTL = time.Hour

// Repository определяет нетранзакционные операции хранилища подписок.
type Repository interface {
	// GetSubscriptionByID возвращает подписку по ID.
	GetSubscriptionByID(ctx context.Context, id int) (*models.Subscription, error)
	// GetSubscriptionByQRCode возвращает подписку по qr_code.
	GetSubscriptionByQRCode(ctx context.Context, code string) (*models.Subscription, error)
	// GetPackage возвращает пакет каталога.
	GetPackage(ctx context.Context, id int) (*models.Package, error)
	// CountVisitsByStatus возвращает число визитов подписки в статусе.
	CountVisitsByStatus(ctx context.Context, subscriptionID int, status models.VisitStatus) (int, error)
	// CreateSubscription вставляет подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	// MarkExpired переводит активные подписки с истёкшей датой в EXPIRED.
	MarkExpired(ctx context.Context, ids []int, now time.Time) ([]string, error)
	// FindExpiredActiveIDs возвращает ID активных подписок с истёкшей датой.
	FindExpiredActiveIDs(ctx context.Context, now time.Time, limit int) ([]int, error)
	// ListVisits возвращает визиты подписки с пагинацией.
	ListVisits(ctx context.Context, subscriptionID, limit, offset int) ([]*models.Visit, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Service реализует реестр подписок.
type Service struct {
	repo  Repository
	store ledger.Store
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, store ledger.Store, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		store: store,
		cache: cache,
		log:   log,
	}
}

// Purchase создаёт подписку по условиям пакета: счётчики стартуют с полной
// ёмкости, срок действия отсчитывается от момента покупки, qr_code — свежий
// непрозрачный токен.
func (s *Service) Purchase(ctx context.Context, customerID int, req models.DummyPurchase) (*models.Subscription, error) {
	pkg, err := s.repo.GetPackage(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.NotFound(fmt.Sprintf("package %d not found", req.PackageID))
		}
		return nil, err
	}
	if pkg.VisitsCount <= 0 || pkg.ValidityDays <= 0 {
		return nil, ledger.InvalidPackage(pkg.ID, pkg.VisitsCount)
	}

	now := time.Now()
	sub := models.Subscription{
		CustomerID:      customerID,
		PackageID:       pkg.ID,
		QRCode:          uuid.NewString(),
		VisitsUsed:      0,
		VisitsRemaining: pkg.VisitsCount,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, pkg.ValidityDays),
		Status:          models.SubscriptionActive,
		AutoRenewal:     req.AutoRenewal,
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ID = id

	s.log.Info("created new subscription",
		slog.Int("id", id),
		slog.Int("package_id", pkg.ID),
		slog.Int("customer_id", customerID))
	return &sub, nil
}

// GetByQR возвращает подписку по токену сканера с производными полями для
// отображения. Сводка кешируется по qr_code и инвалидируется мутациями.
func (s *Service) GetByQR(ctx context.Context, token string) (*models.SubscriptionSummary, error) {
	sub, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("subscription:qr:%s", sub.QRCode)
	var cached models.SubscriptionSummary
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	pkg, err := s.repo.GetPackage(ctx, sub.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.NotFound(fmt.Sprintf("package %d not found", sub.PackageID))
		}
		return nil, err
	}
	completedCount, err := s.repo.CountVisitsByStatus(ctx, sub.ID, models.VisitCompleted)
	if err != nil {
		return nil, err
	}

	summary := models.SubscriptionSummary{
		Subscription:         *sub,
		PackageVisitsCount:   pkg.VisitsCount,
		CompletedVisitsCount: completedCount,
		IsExpiredByDate:      time.Now().After(sub.EndDate),
		IsExpiredByVisits:    completedCount >= pkg.VisitsCount,
	}

	if err := s.cache.Set(cacheKey, summary, cacheTTL); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", cacheKey), sl.Err(err))
	}
	return &summary, nil
}

// resolve разрешает токен сканера в подписку: сначала стратегии разбора
// идентификатора, затем токен целиком как qr_code.
func (s *Service) resolve(ctx context.Context, token string) (*models.Subscription, error) {
	if id, ok := qr.ParseSubscriptionID(token); ok {
		sub, err := s.repo.GetSubscriptionByID(ctx, id)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	sub, err := s.repo.GetSubscriptionByQRCode(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.NotFound("no subscription matches the token")
		}
		return nil, err
	}
	return sub, nil
}

// Cancel отменяет подписку по явному действию клиента. Счётчики и визиты
// не трогаются; отменённую подписку нельзя ни погашать, ни реактивировать.
func (s *Service) Cancel(ctx context.Context, subscriptionID, actorID int) error {
	var qrCode string

	err := ledger.WithRetry(ctx, s.log, func() error {
		qrCode = ""
		return s.store.WithTx(ctx, func(tx ledger.TxStore) error {
			sub, err := tx.LockSubscription(ctx, subscriptionID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ledger.NotFound(fmt.Sprintf("subscription %d not found", subscriptionID))
				}
				return err
			}
			if sub.CustomerID != actorID {
				return ledger.Forbidden(actorID)
			}
			if sub.Status == models.SubscriptionCancelled {
				return ledger.InvalidState("subscription %d is already cancelled", sub.ID)
			}
			qrCode = sub.QRCode
			return tx.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionCancelled)
		})
	})
	if err != nil {
		return err
	}

	s.invalidateCache(qrCode)
	s.log.Info("subscription cancelled", slog.Int("id", subscriptionID))
	return nil
}

// MarkExpired — публичная операция массового истечения для внешнего
// планировщика. Переводит в EXPIRED только активные подписки с истёкшей
// датой из переданного списка; счётчики не меняются. Возвращает число
// затронутых подписок.
func (s *Service) MarkExpired(ctx context.Context, subscriptionIDs []int) (int, error) {
	codes, err := s.repo.MarkExpired(ctx, subscriptionIDs, time.Now())
	if err != nil {
		return 0, err
	}
	for _, code := range codes {
		s.invalidateCache(code)
	}
	if len(codes) > 0 {
		s.log.Info("marked subscriptions expired", slog.Int("count", len(codes)))
	}
	return len(codes), nil
}

// SweepOnce находит активные подписки с истёкшей датой и помечает их
// истёкшими одним пакетом. Используется обходчиком.
func (s *Service) SweepOnce(ctx context.Context, batchSize int) (int, error) {
	ids, err := s.repo.FindExpiredActiveIDs(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.MarkExpired(ctx, ids)
}

// ListVisits возвращает историю визитов подписки с пагинацией.
// История доступна только клиенту подписки.
func (s *Service) ListVisits(ctx context.Context, subscriptionID, actorID, limit, offset int) ([]*models.Visit, error) {
	sub, err := s.repo.GetSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.NotFound(fmt.Sprintf("subscription %d not found", subscriptionID))
		}
		return nil, err
	}
	if sub.CustomerID != actorID {
		return nil, ledger.Forbidden(actorID)
	}
	return s.repo.ListVisits(ctx, subscriptionID, limit, offset)
}

func (s *Service) invalidateCache(qrCode string) {
	cacheKey := fmt.Sprintf("subscription:qr:%s", qrCode)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
