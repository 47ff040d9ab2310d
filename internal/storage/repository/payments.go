package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

const paymentColumns = `id, account_id, subscription_id, amount, currency, proof_image_ref, status,
	processed_by, processed_at, notes, created_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p           models.Payment
		processedBy sql.NullString
		processedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.AccountID, &p.SubscriptionID, &p.Amount, &p.Currency, &p.ProofImageRef,
		&p.Status, &processedBy, &processedAt, &p.Notes, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ProcessedBy = nullString(processedBy)
	p.ProcessedAt = nullTime(processedAt)
	return &p, nil
}

// CreatePayment сохраняет платёж и возвращает его ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (account_id, subscription_id, amount, currency, proof_image_ref, status, notes, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, query,
		p.AccountID, p.SubscriptionID, p.Amount, p.Currency, p.ProofImageRef, p.Status, p.Notes, p.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

// GetPayment возвращает платёж по ID.
func (s *Storage) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "storage.GetPayment"

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// MarkPaymentProcessed переводит платёж из pending в конечный статус условным
// UPDATE. Если строка уже не в pending (обработана параллельно), возвращает
// models.ErrAlreadyProcessed.
func (s *Storage) MarkPaymentProcessed(ctx context.Context, id int64, status models.PaymentStatus,
	processedBy string, at time.Time, notes string) error {
	const op = "storage.MarkPaymentProcessed"

	query := `UPDATE payments
			  SET status = $2, processed_by = $3, processed_at = $4, notes = $5
			  WHERE id = $1 AND status = 'pending'`
	res, err := s.q(ctx).ExecContext(ctx, query, id, status, processedBy, at, notes)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyProcessed)
	}
	return nil
}

// ListPayments возвращает платежи по фильтру, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		conds []string
		args  []any
	)
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		conds = append(conds, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	defer rows.Close()

	var result []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
