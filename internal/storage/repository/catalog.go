package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// GetPackage читает пакет из каталога. Каталог для ядра только для чтения.
func (q queries) GetPackage(ctx context.Context, id int) (*models.Package, error) {
	const op = "storage.GetPackage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, salon_id, name, price, visits_count, validity_days
			  FROM packages WHERE id = $1`
	row := q.db.QueryRowContext(ctx, query, id)

	var pkg models.Package
	if err := row.Scan(&pkg.ID, &pkg.SalonID, &pkg.Name, &pkg.Price,
		&pkg.VisitsCount, &pkg.ValidityDays); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &pkg, nil
}

// GetSalon читает салон.
func (q queries) GetSalon(ctx context.Context, id int) (*models.Salon, error) {
	const op = "storage.GetSalon"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_id, name FROM salons WHERE id = $1`
	row := q.db.QueryRowContext(ctx, query, id)

	var salon models.Salon
	if err := row.Scan(&salon.ID, &salon.OwnerID, &salon.Name); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &salon, nil
}
