package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

const subscriptionColumns = `id, customer_id, package_id, qr_code, visits_used,
			visits_remaining, start_date, end_date, status, auto_renewal`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.ID, &sub.CustomerID, &sub.PackageID, &sub.QRCode,
		&sub.VisitsUsed, &sub.VisitsRemaining, &sub.StartDate, &sub.EndDate,
		&sub.Status, &sub.AutoRenewal); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription вставляет новую подписку и возвращает её ID.
func (q queries) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (customer_id, package_id, qr_code, visits_used,
			      visits_remaining, start_date, end_date, status, auto_renewal)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var newID int
	err := q.db.QueryRowContext(ctx, query,
		sub.CustomerID, sub.PackageID, sub.QRCode, sub.VisitsUsed, sub.VisitsRemaining,
		sub.StartDate, sub.EndDate, sub.Status, sub.AutoRenewal).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscriptionByID возвращает подписку по её ID без блокировки строки.
func (q queries) GetSubscriptionByID(ctx context.Context, id int) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscriptionByQRCode возвращает подписку по её qr_code без блокировки строки.
func (q queries) GetSubscriptionByQRCode(ctx context.Context, code string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByQRCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE qr_code = $1`
	sub, err := scanSubscription(q.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// LockSubscription читает подписку по ID, захватывая строку до конца транзакции.
func (q queries) LockSubscription(ctx context.Context, id int) (*models.Subscription, error) {
	const op = "storage.LockSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	sub, err := scanSubscription(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// LockSubscriptionByQR читает подписку по qr_code, захватывая строку до конца транзакции.
func (q queries) LockSubscriptionByQR(ctx context.Context, code string) (*models.Subscription, error) {
	const op = "storage.LockSubscriptionByQR"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE qr_code = $1 FOR UPDATE`
	sub, err := scanSubscription(q.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscriptionCounters записывает счётчики и статус подписки.
func (q queries) UpdateSubscriptionCounters(ctx context.Context, id, used, remaining int, status models.SubscriptionStatus) error {
	const op = "storage.UpdateSubscriptionCounters"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET visits_used = $1, visits_remaining = $2, status = $3
			  WHERE id = $4`
	if _, err := q.db.ExecContext(ctx, query, used, remaining, status, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscriptionStatus записывает только статус подписки.
func (q queries) UpdateSubscriptionStatus(ctx context.Context, id int, status models.SubscriptionStatus) error {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE id = $2`
	if _, err := q.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkExpired переводит перечисленные активные подписки с истёкшей датой
// в EXPIRED, не трогая счётчики. Возвращает qr_code затронутых подписок
// (для инвалидации кеша; количество — длина списка).
func (q queries) MarkExpired(ctx context.Context, ids []int, now time.Time) ([]string, error) {
	const op = "storage.MarkExpired"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, now)
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, id)
	}

	query := `UPDATE subscriptions
			  SET status = 'EXPIRED'
			  WHERE status = 'ACTIVE' AND end_date < $1 AND id IN (` + strings.Join(placeholders, ", ") + `)
			  RETURNING qr_code`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return codes, nil
}

// FindExpiredActiveIDs возвращает ID активных подписок с истёкшей датой.
// Используется обходчиком для формирования пакета на массовое истечение.
func (q queries) FindExpiredActiveIDs(ctx context.Context, now time.Time, limit int) ([]int, error) {
	const op = "storage.FindExpiredActiveIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id FROM subscriptions
			  WHERE status = 'ACTIVE' AND end_date < $1
			  ORDER BY id
			  LIMIT $2`
	rows, err := q.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
