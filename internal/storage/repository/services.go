package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

const serviceColumns = `id, slug, name, is_active, price_monthly, price_yearly, currency`

func scanService(row rowScanner) (*models.Service, error) {
	var svc models.Service
	if err := row.Scan(&svc.ID, &svc.Slug, &svc.Name, &svc.IsActive,
		&svc.PriceMonthly, &svc.PriceYearly, &svc.Currency); err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetServiceBySlug возвращает сервис каталога по slug.
func (s *Storage) GetServiceBySlug(ctx context.Context, slug string) (*models.Service, error) {
	const op = "storage.GetServiceBySlug"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + serviceColumns + ` FROM services WHERE slug = $1`
	svc, err := scanService(s.q(ctx).QueryRowContext(ctx, query, slug))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return svc, nil
}

// GetServiceByID возвращает сервис каталога по ID.
func (s *Storage) GetServiceByID(ctx context.Context, id int64) (*models.Service, error) {
	const op = "storage.GetServiceByID"

	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	svc, err := scanService(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return svc, nil
}

// IsServiceActive возвращает флаг активности сервиса по ID.
func (s *Storage) IsServiceActive(ctx context.Context, id int64) (bool, error) {
	const op = "storage.IsServiceActive"

	var active bool
	err := s.q(ctx).QueryRowContext(ctx, `SELECT is_active FROM services WHERE id = $1`, id).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return active, nil
}
