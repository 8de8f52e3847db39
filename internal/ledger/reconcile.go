package ledger

import (
	"context"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// ReconcileCounters пересчитывает кешированные счётчики подписки из
// авторитетного числа завершённых визитов и сохраняет результат.
// Вызывается лениво внутри транзакции вызывающего, когда путь погашения
// или завершения замечает расхождение; по расписанию не запускается.
//
// Если скорректированный остаток равен нулю, подписка переводится
// в EXPIRED (кроме уже отменённых). Функция идемпотентна: повторный
// вызов без новых завершений даёт те же счётчики.
// Поля sub обновляются на месте.
func ReconcileCounters(ctx context.Context, tx TxStore, sub *models.Subscription, pkg *models.Package) error {
	used, err := tx.CountVisitsByStatus(ctx, sub.ID, models.VisitCompleted)
	if err != nil {
		return err
	}

	remaining := pkg.VisitsCount - used
	if remaining < 0 {
		remaining = 0
	}

	status := sub.Status
	if remaining == 0 && status != models.SubscriptionCancelled {
		status = models.SubscriptionExpired
	}

	if err := tx.UpdateSubscriptionCounters(ctx, sub.ID, used, remaining, status); err != nil {
		return err
	}

	sub.VisitsUsed = used
	sub.VisitsRemaining = remaining
	sub.Status = status
	return nil
}
