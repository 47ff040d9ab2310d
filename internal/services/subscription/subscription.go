// Package subscription содержит административные операции над подписками:
// создание, редактирование и продление, отмену, а также выключатель учётной записи.
// Каждая операция требует администратора и пишет запись аудита в той же транзакции.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Repository определяет методы хранилища, нужные менеджеру подписок.
type Repository interface {
	// GetAccount возвращает учётную запись по ID.
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// GetServiceByID возвращает сервис по ID.
	GetServiceByID(ctx context.Context, id int64) (*models.Service, error)
	// CreateSubscription добавляет запись подписки и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	// LockSubscription читает подписку с блокировкой строки до конца транзакции.
	LockSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	// UpdateSubscription сохраняет все поля подписки.
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	// ListSubscriptionsByAccount возвращает историю подписок учётной записи.
	ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.Subscription, error)
	// SetAccountActive включает или выключает учётную запись.
	SetAccountActive(ctx context.Context, id string, active bool) error
	// AppendAudit добавляет запись в журнал аудита.
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	// InTx выполняет fn в транзакции; ctx внутри fn несёт транзакцию.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateRequest параметры новой подписки.
type CreateRequest struct {
	AccountID string
	ServiceID int64
	PlanType  models.PlanType
	Status    models.SubscriptionStatus
	StartsAt  time.Time
	ExpiresAt *time.Time
}

// Patch частичное изменение подписки: nil-поля не меняются.
// ClearExpiry снимает дату окончания (перевод в бессрочную).
type Patch struct {
	PlanType    *models.PlanType           `json:"plan_type,omitempty"`
	Status      *models.SubscriptionStatus `json:"status,omitempty"`
	StartsAt    *time.Time                 `json:"starts_at,omitempty"`
	ExpiresAt   *time.Time                 `json:"expires_at,omitempty"`
	ClearExpiry bool                       `json:"clear_expiry,omitempty"`
	ServiceID   *int64                     `json:"service_id,omitempty"`
}

func (p Patch) empty() bool {
	return p.PlanType == nil && p.Status == nil && p.StartsAt == nil &&
		p.ExpiresAt == nil && !p.ClearExpiry && p.ServiceID == nil
}

// Manager реализует жизненный цикл подписок.
type Manager struct {
	repo Repository
	log  *slog.Logger
}

// NewManager создаёт Manager.
func NewManager(repo Repository, log *slog.Logger) *Manager {
	return &Manager{
		repo: repo,
		log:  log,
	}
}

// Create добавляет новую запись подписки. Предыдущие записи пары не меняются:
// история только дополняется.
func (m *Manager) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Subscription, error) {
	const op = "subscription.Create"
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := models.Subscription{
		AccountID: req.AccountID,
		ServiceID: req.ServiceID,
		PlanType:  req.PlanType,
		Status:    req.Status,
		StartsAt:  req.StartsAt,
		ExpiresAt: req.ExpiresAt,
	}
	if sub.Status == "" {
		sub.Status = models.SubscriptionPending
	}
	if sub.ExpiresAt == nil && sub.PlanType != models.PlanLifetime {
		sub.ExpiresAt = ComputeDefaultExpiry(sub.PlanType, sub.StartsAt)
	}
	if err := validate(sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := m.repo.InTx(ctx, func(ctx context.Context) error {
		if _, err := m.repo.GetAccount(ctx, sub.AccountID); err != nil {
			return fmt.Errorf("account %s: %w", sub.AccountID, err)
		}
		if _, err := m.repo.GetServiceByID(ctx, sub.ServiceID); err != nil {
			return fmt.Errorf("service %d: %w", sub.ServiceID, err)
		}
		id, err := m.repo.CreateSubscription(ctx, sub)
		if err != nil {
			return err
		}
		sub.ID = id
		return m.audit(ctx, actor, models.AuditSubscriptionCreate, id, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("subscription created",
		slog.Int64("id", sub.ID),
		slog.String("account_id", sub.AccountID),
		slog.String("actor", actor.ID))
	return &sub, nil
}

// ExtendOrEdit частично обновляет подписку: план, статус, даты или сервис.
func (m *Manager) ExtendOrEdit(ctx context.Context, actor models.Actor, id int64, patch Patch, now time.Time) (*models.Subscription, error) {
	const op = "subscription.ExtendOrEdit"
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if patch.empty() {
		return nil, fmt.Errorf("%s: %w: nothing to update", op, models.ErrInvariantViolation)
	}
	if patch.ClearExpiry && patch.ExpiresAt != nil {
		return nil, fmt.Errorf("%s: %w: expires_at and clear_expiry are mutually exclusive", op, models.ErrInvariantViolation)
	}

	var updated models.Subscription
	err := m.repo.InTx(ctx, func(ctx context.Context) error {
		current, err := m.repo.LockSubscription(ctx, id)
		if err != nil {
			return err
		}
		updated = *current

		if patch.Status != nil {
			if !CanTransition(current.Status, *patch.Status) {
				return fmt.Errorf("%w: transition %s -> %s is not allowed",
					models.ErrInvariantViolation, current.Status, *patch.Status)
			}
			updated.Status = *patch.Status
		}
		if patch.PlanType != nil {
			updated.PlanType = *patch.PlanType
		}
		if patch.StartsAt != nil {
			updated.StartsAt = *patch.StartsAt
		}
		if patch.ExpiresAt != nil {
			updated.ExpiresAt = patch.ExpiresAt
		}
		if patch.ClearExpiry {
			updated.ExpiresAt = nil
		}
		if patch.ServiceID != nil {
			if _, err := m.repo.GetServiceByID(ctx, *patch.ServiceID); err != nil {
				return fmt.Errorf("service %d: %w", *patch.ServiceID, err)
			}
			updated.ServiceID = *patch.ServiceID
		}
		if err := validate(updated); err != nil {
			return err
		}

		updated.RenewedBy = &actor.ID
		updated.RenewedAt = &now
		if err := m.repo.UpdateSubscription(ctx, updated); err != nil {
			return err
		}
		return m.audit(ctx, actor, models.AuditSubscriptionEdit, id, patch)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("subscription updated", slog.Int64("id", id), slog.String("actor", actor.ID))
	return &updated, nil
}

// Cancel немедленно прекращает подписку: статус expired, дата окончания now.
// Льготного периода нет: следующее вычисление доступа уже вернёт отказ.
func (m *Manager) Cancel(ctx context.Context, actor models.Actor, id int64, now time.Time) (*models.Subscription, error) {
	const op = "subscription.Cancel"
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var updated models.Subscription
	err := m.repo.InTx(ctx, func(ctx context.Context) error {
		current, err := m.repo.LockSubscription(ctx, id)
		if err != nil {
			return err
		}
		updated = *current
		updated.Status = models.SubscriptionExpired
		updated.ExpiresAt = &now
		updated.RenewedBy = &actor.ID
		updated.RenewedAt = &now
		if err := m.repo.UpdateSubscription(ctx, updated); err != nil {
			return err
		}
		return m.audit(ctx, actor, models.AuditSubscriptionCancel, id, map[string]any{
			"previous_status":     current.Status,
			"previous_expires_at": current.ExpiresAt,
			"expires_at":          now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("subscription cancelled", slog.Int64("id", id), slog.String("actor", actor.ID))
	return &updated, nil
}

// SetAccountActive включает или выключает учётную запись целиком, независимо от подписок.
func (m *Manager) SetAccountActive(ctx context.Context, actor models.Actor, accountID string, active bool) error {
	const op = "subscription.SetAccountActive"
	if err := requireAdmin(actor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := m.repo.InTx(ctx, func(ctx context.Context) error {
		if err := m.repo.SetAccountActive(ctx, accountID, active); err != nil {
			return err
		}
		return m.auditTarget(ctx, actor, models.AuditAccountActive, "accounts", accountID,
			map[string]bool{"active": active})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("account active flag changed",
		slog.String("account_id", accountID),
		slog.Bool("active", active),
		slog.String("actor", actor.ID))
	return nil
}

// DefaultExpiry предлагает дату окончания для плана, начинающегося в from.
// Для бессрочного плана возвращает nil.
func (m *Manager) DefaultExpiry(plan models.PlanType, from time.Time) (*time.Time, error) {
	const op = "subscription.DefaultExpiry"
	if !plan.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown plan type %q", op, models.ErrInvariantViolation, plan)
	}
	return ComputeDefaultExpiry(plan, from), nil
}

// ListForAccount возвращает историю подписок учётной записи.
func (m *Manager) ListForAccount(ctx context.Context, accountID string) ([]models.Subscription, error) {
	const op = "subscription.ListForAccount"
	subs, err := m.repo.ListSubscriptionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

func (m *Manager) audit(ctx context.Context, actor models.Actor, action string, id int64, payload any) error {
	return m.auditTarget(ctx, actor, action, "subscriptions", strconv.FormatInt(id, 10), payload)
}

func (m *Manager) auditTarget(ctx context.Context, actor models.Actor, action, table, id string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	return m.repo.AppendAudit(ctx, models.AuditEntry{
		ActorID:     actor.ID,
		Action:      action,
		TargetTable: table,
		TargetID:    id,
		Payload:     raw,
	})
}

func requireAdmin(actor models.Actor) error {
	if actor.ID == "" || !actor.Role.IsAdmin() {
		return models.ErrUnauthorized
	}
	return nil
}

func validate(sub models.Subscription) error {
	if !sub.PlanType.Valid() {
		return fmt.Errorf("%w: unknown plan type %q", models.ErrInvariantViolation, sub.PlanType)
	}
	if !sub.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvariantViolation, sub.Status)
	}
	if sub.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at is required", models.ErrInvariantViolation)
	}
	if sub.PlanType == models.PlanLifetime && sub.ExpiresAt != nil {
		return fmt.Errorf("%w: lifetime subscription cannot have expires_at", models.ErrInvariantViolation)
	}
	if sub.PlanType != models.PlanLifetime && sub.ExpiresAt == nil {
		return fmt.Errorf("%w: %s subscription requires expires_at", models.ErrInvariantViolation, sub.PlanType)
	}
	if sub.ExpiresAt != nil && !sub.ExpiresAt.After(sub.StartsAt) {
		return fmt.Errorf("%w: expires_at must be after starts_at", models.ErrInvariantViolation)
	}
	return nil
}
