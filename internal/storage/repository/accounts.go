package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

const accountColumns = `id, username, email, label, password_hash, role, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Label, &a.PasswordHash,
		&a.Role, &a.Active, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount сохраняет новую учётную запись.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account) error {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO accounts (id, username, email, label, password_hash, role, active, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.q(ctx).ExecContext(ctx, query,
		account.ID, account.Username, account.Email, account.Label, account.PasswordHash,
		account.Role, account.Active, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// GetAccount возвращает учётную запись по ID.
func (s *Storage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return account, nil
}

// GetAccountByUsername возвращает учётную запись по имени пользователя.
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "storage.GetAccountByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	account, err := scanAccount(s.q(ctx).QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return account, nil
}

// SetAccountActive меняет выключатель учётной записи.
func (s *Storage) SetAccountActive(ctx context.Context, id string, active bool) error {
	const op = "storage.SetAccountActive"

	res, err := s.q(ctx).ExecContext(ctx, `UPDATE accounts SET active = $2 WHERE id = $1`, id, active)
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
