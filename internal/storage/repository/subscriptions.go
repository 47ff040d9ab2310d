package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

const subscriptionColumns = `id, account_id, service_id, plan_type, status, starts_at, expires_at, renewed_by, renewed_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		expiresAt sql.NullTime
		renewedBy sql.NullString
		renewedAt sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.AccountID, &sub.ServiceID, &sub.PlanType, &sub.Status,
		&sub.StartsAt, &expiresAt, &renewedBy, &renewedAt); err != nil {
		return nil, err
	}
	sub.ExpiresAt = nullTime(expiresAt)
	sub.RenewedBy = nullString(renewedBy)
	sub.RenewedAt = nullTime(renewedAt)
	return &sub, nil
}

func scanSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	var result []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sub)
	}
	return result, rows.Err()
}

// CreateSubscription добавляет запись подписки и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (account_id, service_id, plan_type, status, starts_at, expires_at, renewed_by, renewed_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, query,
		sub.AccountID, sub.ServiceID, sub.PlanType, sub.Status, sub.StartsAt,
		sub.ExpiresAt, sub.RenewedBy, sub.RenewedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return sub, nil
}

// LockSubscription читает подписку с блокировкой строки (SELECT ... FOR UPDATE).
// Вызывается внутри InTx: блокировка держится до конца транзакции.
func (s *Storage) LockSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.LockSubscription"
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); !ok {
		return nil, fmt.Errorf("%s: must be called inside a transaction", op)
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	sub, err := scanSubscription(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return sub, nil
}

// UpdateSubscription сохраняет все изменяемые поля подписки.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"

	query := `UPDATE subscriptions
			  SET service_id = $2, plan_type = $3, status = $4, starts_at = $5,
			      expires_at = $6, renewed_by = $7, renewed_at = $8
			  WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query,
		sub.ID, sub.ServiceID, sub.PlanType, sub.Status, sub.StartsAt,
		sub.ExpiresAt, sub.RenewedBy, sub.RenewedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListSubscriptionsFor возвращает историю подписок пары (учётная запись, сервис),
// новые записи первыми.
func (s *Storage) ListSubscriptionsFor(ctx context.Context, accountID string, serviceID int64) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptionsFor"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE account_id = $1 AND service_id = $2
			  ORDER BY starts_at DESC, id DESC`
	rows, err := s.q(ctx).QueryContext(ctx, query, accountID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	defer rows.Close()

	result, err := scanSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListSubscriptionsByAccount возвращает все подписки учётной записи, новые первыми.
func (s *Storage) ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptionsByAccount"

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE account_id = $1
			  ORDER BY starts_at DESC, id DESC`
	rows, err := s.q(ctx).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	defer rows.Close()

	result, err := scanSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
