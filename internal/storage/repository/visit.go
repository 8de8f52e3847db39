package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// CreateVisit вставляет новый визит и возвращает его ID.
func (q queries) CreateVisit(ctx context.Context, visit models.Visit) (int, error) {
	const op = "storage.CreateVisit"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO visits (subscription_id, salon_id, visit_date, service_name, status)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int
	err := q.db.QueryRowContext(ctx, query,
		visit.SubscriptionID, visit.SalonID, visit.VisitDate, visit.ServiceName, visit.Status).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// LockVisit читает визит по ID, захватывая строку до конца транзакции.
func (q queries) LockVisit(ctx context.Context, id int) (*models.Visit, error) {
	const op = "storage.LockVisit"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, subscription_id, salon_id, visit_date, service_name, status
			  FROM visits WHERE id = $1 FOR UPDATE`
	row := q.db.QueryRowContext(ctx, query, id)

	var visit models.Visit
	if err := row.Scan(&visit.ID, &visit.SubscriptionID, &visit.SalonID,
		&visit.VisitDate, &visit.ServiceName, &visit.Status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &visit, nil
}

// UpdateVisitStatus записывает новый статус визита.
func (q queries) UpdateVisitStatus(ctx context.Context, id int, status models.VisitStatus) error {
	const op = "storage.UpdateVisitStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE visits SET status = $1 WHERE id = $2`
	if _, err := q.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountVisitsByStatus возвращает число визитов подписки в заданном статусе.
func (q queries) CountVisitsByStatus(ctx context.Context, subscriptionID int, status models.VisitStatus) (int, error) {
	const op = "storage.CountVisitsByStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM visits WHERE subscription_id = $1 AND status = $2`
	var count int
	if err := q.db.QueryRowContext(ctx, query, subscriptionID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CountCompletedVisitsExcluding возвращает число завершённых визитов подписки,
// не считая указанный визит. Используется финальной проверкой ёмкости
// на пути завершения.
func (q queries) CountCompletedVisitsExcluding(ctx context.Context, subscriptionID, excludeVisitID int) (int, error) {
	const op = "storage.CountCompletedVisitsExcluding"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM visits
			  WHERE subscription_id = $1 AND status = 'COMPLETED' AND id <> $2`
	var count int
	if err := q.db.QueryRowContext(ctx, query, subscriptionID, excludeVisitID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListUsedServiceNames возвращает различные названия услуг завершённых визитов подписки.
func (q queries) ListUsedServiceNames(ctx context.Context, subscriptionID int) ([]string, error) {
	const op = "storage.ListUsedServiceNames"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT DISTINCT service_name FROM visits
			  WHERE subscription_id = $1 AND status = 'COMPLETED' AND service_name IS NOT NULL
			  ORDER BY service_name`
	rows, err := q.db.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return names, nil
}

// ListVisits возвращает визиты подписки с пагинацией, новые первыми.
func (q queries) ListVisits(ctx context.Context, subscriptionID, limit, offset int) ([]*models.Visit, error) {
	const op = "storage.ListVisits"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, subscription_id, salon_id, visit_date, service_name, status
			  FROM visits
			  WHERE subscription_id = $1
			  ORDER BY visit_date DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := q.db.QueryContext(ctx, query, subscriptionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result []*models.Visit
	for rows.Next() {
		var item models.Visit
		if err := rows.Scan(&item.ID, &item.SubscriptionID, &item.SalonID,
			&item.VisitDate, &item.ServiceName, &item.Status); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
