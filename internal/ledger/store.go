package ledger

import (
	"context"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// TxStore определяет строчные операции хранилища, доступные внутри одной
// транзакции. Методы Lock* захватывают строку до конца транзакции, поэтому
// проверка инвариантов и соответствующая запись не разделяются границей
// транзакции.
type TxStore interface {
	// LockSubscription читает подписку по ID с блокировкой строки.
	LockSubscription(ctx context.Context, id int) (*models.Subscription, error)
	// LockSubscriptionByQR читает подписку по точному qr_code с блокировкой строки.
	LockSubscriptionByQR(ctx context.Context, code string) (*models.Subscription, error)
	// LockVisit читает визит по ID с блокировкой строки.
	LockVisit(ctx context.Context, id int) (*models.Visit, error)
	// GetPackage читает пакет из каталога.
	GetPackage(ctx context.Context, id int) (*models.Package, error)
	// GetSalon читает салон.
	GetSalon(ctx context.Context, id int) (*models.Salon, error)
	// CountVisitsByStatus возвращает число визитов подписки в заданном статусе.
	CountVisitsByStatus(ctx context.Context, subscriptionID int, status models.VisitStatus) (int, error)
	// CountCompletedVisitsExcluding возвращает число завершённых визитов подписки,
	// не считая указанный визит.
	CountCompletedVisitsExcluding(ctx context.Context, subscriptionID, excludeVisitID int) (int, error)
	// ListUsedServiceNames возвращает различные названия услуг завершённых визитов подписки.
	ListUsedServiceNames(ctx context.Context, subscriptionID int) ([]string, error)
	// CreateVisit вставляет новый визит и возвращает его ID.
	CreateVisit(ctx context.Context, visit models.Visit) (int, error)
	// UpdateVisitStatus записывает новый статус визита.
	UpdateVisitStatus(ctx context.Context, id int, status models.VisitStatus) error
	// UpdateSubscriptionCounters записывает счётчики и статус подписки.
	UpdateSubscriptionCounters(ctx context.Context, id, used, remaining int, status models.SubscriptionStatus) error
	// UpdateSubscriptionStatus записывает только статус подписки.
	UpdateSubscriptionStatus(ctx context.Context, id int, status models.SubscriptionStatus) error
}

// Store — транзакционный доступ ядра к хранилищу. WithTx выполняет fn в одной
// атомарной транзакции; ошибка из fn откатывает транзакцию и возвращается
// вызывающему как есть. Конфликты сериализации и блокировок возвращаются
// как доменная ошибка KindTransient.
type Store interface {
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
}

// Notifier — односторонний канал уведомлений. Реализация внешняя
// (push/email/WebSocket); ошибки доставки логируются и никогда не влияют
// на результат операции ядра.
type Notifier interface {
	Notify(ctx context.Context, userID int, kind string, payload any) error
}
