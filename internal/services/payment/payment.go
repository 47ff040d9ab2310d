// Package payment реализует ручное подтверждение оплаты: владелец загружает
// подтверждение, администратор одобряет или отклоняет его. Одобрение продлевает
// подписку в той же транзакции, что и смена статуса платежа.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-core/internal/models"
	"github.com/magabrotheeeer/entitlement-core/internal/services/subscription"
)

// RoutingKeyPaymentRequested ключ маршрутизации сообщения о новом платеже.
const RoutingKeyPaymentRequested = "payment.requested"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository определяет методы хранилища, нужные процессу подтверждения оплаты.
type Repository interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetServiceByID(ctx context.Context, id int64) (*models.Service, error)
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	LockSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	CreatePayment(ctx context.Context, p models.Payment) (int64, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	// MarkPaymentProcessed переводит платёж из pending в конечный статус.
	// Если платёж уже не в pending, возвращает models.ErrAlreadyProcessed.
	MarkPaymentProcessed(ctx context.Context, id int64, status models.PaymentStatus, processedBy string, at time.Time, notes string) error
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier передаёт сообщение внешнему сервису уведомлений.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

// Recorder учитывает события платежей в метриках.
type Recorder interface {
	ObservePayment(status string)
}

// SubmitRequest данные подтверждения оплаты от владельца подписки.
type SubmitRequest struct {
	SubscriptionID int64  `json:"subscription_id" validate:"required,gt=0"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Currency       string `json:"currency,omitempty" validate:"omitempty,len=3"`
	ProofImageRef  string `json:"proof_image_ref" validate:"required"`
}

// ApproveOptions параметры одобрения. Extension == nil означает один
// расчётный период плана подписки.
type ApproveOptions struct {
	Extension *subscription.Period `json:"extension,omitempty"`
}

// ApproveResult платёж и продлённая подписка после одобрения.
type ApproveResult struct {
	Payment      models.Payment      `json:"payment"`
	Subscription models.Subscription `json:"subscription"`
}

// Service процесс подтверждения оплаты.
type Service struct {
	repo            Repository
	notifier        Notifier
	metrics         Recorder
	defaultCurrency string
	log             *slog.Logger
}

// NewService создаёт Service. notifier может быть nil: тогда сообщения не отправляются.
func NewService(repo Repository, notifier Notifier, metrics Recorder, defaultCurrency string, log *slog.Logger) *Service {
	return &Service{
		repo:            repo,
		notifier:        notifier,
		metrics:         metrics,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// Submit сохраняет подтверждение оплаты в статусе pending и отправляет
// уведомление администраторам. Ошибка отправки не отменяет сохранение.
func (s *Service) Submit(ctx context.Context, accountID string, req SubmitRequest, now time.Time) (*models.Payment, error) {
	const op = "payment.Submit"
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%s: %w: amount must be positive", op, models.ErrInvariantViolation)
	}
	if strings.TrimSpace(req.ProofImageRef) == "" {
		return nil, fmt.Errorf("%s: %w: proof image is required", op, models.ErrInvariantViolation)
	}

	sub, err := s.repo.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.AccountID != accountID {
		return nil, fmt.Errorf("%s: %w: subscription belongs to another account", op, models.ErrUnauthorized)
	}
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	service, err := s.repo.GetServiceByID(ctx, sub.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	payment := models.Payment{
		AccountID:      accountID,
		SubscriptionID: sub.ID,
		Amount:         req.Amount,
		Currency:       s.currency(req.Currency, service),
		ProofImageRef:  req.ProofImageRef,
		Status:         models.PaymentPending,
		CreatedAt:      now,
	}
	id, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	payment.ID = id
	s.observe(string(models.PaymentPending))

	s.notify(ctx, models.PaymentRequestMessage{
		PaymentID:    payment.ID,
		ServiceName:  service.Name,
		AccountLabel: account.DisplayName(),
		Amount:       payment.Amount,
		Currency:     payment.Currency,
	})

	s.log.Info("payment submitted",
		slog.Int64("payment_id", payment.ID),
		slog.String("account_id", accountID),
		slog.Int64("subscription_id", sub.ID))
	return &payment, nil
}

// Approve одобряет платёж и продлевает подписку: новая дата окончания
// отсчитывается от более поздней из now и текущей даты окончания.
// Повторное одобрение возвращает models.ErrAlreadyProcessed и ничего не меняет.
func (s *Service) Approve(ctx context.Context, actor models.Actor, paymentID int64, opts ApproveOptions, now time.Time) (*ApproveResult, error) {
	const op = "payment.Approve"
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if opts.Extension != nil && (opts.Extension.Months < 0 || opts.Extension.Days < 0) {
		return nil, fmt.Errorf("%s: %w: extension must not be negative", op, models.ErrInvariantViolation)
	}

	var res ApproveResult
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentPending {
			return models.ErrAlreadyProcessed
		}
		if err := s.repo.MarkPaymentProcessed(ctx, paymentID, models.PaymentApproved, actor.ID, now, ""); err != nil {
			return err
		}

		sub, err := s.repo.LockSubscription(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		previousExpiry := sub.ExpiresAt
		if err := renew(sub, opts.Extension, now); err != nil {
			return err
		}
		sub.RenewedBy = &actor.ID
		sub.RenewedAt = &now
		if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
			return err
		}

		if err := s.audit(ctx, actor, models.AuditPaymentApprove, "payments", paymentID, map[string]any{
			"subscription_id": sub.ID,
			"amount":          payment.Amount,
			"currency":        payment.Currency,
		}); err != nil {
			return err
		}
		if err := s.audit(ctx, actor, models.AuditSubscriptionRenew, "subscriptions", sub.ID, map[string]any{
			"payment_id":          paymentID,
			"previous_expires_at": previousExpiry,
			"expires_at":          sub.ExpiresAt,
		}); err != nil {
			return err
		}

		payment.Status = models.PaymentApproved
		payment.ProcessedBy = &actor.ID
		payment.ProcessedAt = &now
		res = ApproveResult{Payment: *payment, Subscription: *sub}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyProcessed) {
			s.log.Warn("payment already processed", slog.Int64("payment_id", paymentID))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.observe(string(models.PaymentApproved))

	s.log.Info("payment approved",
		slog.Int64("payment_id", paymentID),
		slog.Int64("subscription_id", res.Subscription.ID),
		slog.String("actor", actor.ID))
	return &res, nil
}

// Reject отклоняет платёж с обязательным комментарием. Подписка не меняется.
func (s *Service) Reject(ctx context.Context, actor models.Actor, paymentID int64, notes string, now time.Time) (*models.Payment, error) {
	const op = "payment.Reject"
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, fmt.Errorf("%s: %w: rejection notes are required", op, models.ErrInvariantViolation)
	}

	var rejected models.Payment
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentPending {
			return models.ErrAlreadyProcessed
		}
		if err := s.repo.MarkPaymentProcessed(ctx, paymentID, models.PaymentRejected, actor.ID, now, notes); err != nil {
			return err
		}
		if err := s.audit(ctx, actor, models.AuditPaymentReject, "payments", paymentID, map[string]string{
			"notes": notes,
		}); err != nil {
			return err
		}

		rejected = *payment
		rejected.Status = models.PaymentRejected
		rejected.ProcessedBy = &actor.ID
		rejected.ProcessedAt = &now
		rejected.Notes = notes
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.observe(string(models.PaymentRejected))

	s.log.Info("payment rejected", slog.Int64("payment_id", paymentID), slog.String("actor", actor.ID))
	return &rejected, nil
}

// List возвращает платежи по фильтру. Не-администратор видит только свои платежи.
func (s *Service) List(ctx context.Context, actor models.Actor, filter models.PaymentFilter) ([]models.Payment, error) {
	const op = "payment.List"
	if !actor.Role.IsAdmin() {
		filter.AccountID = &actor.ID
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, models.ErrInvariantViolation, *filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	payments, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// renew продлевает подписку на ext или на расчётный период плана от
// max(now, ExpiresAt) при любом прежнем статусе, поэтому оставшееся оплаченное
// время не теряется. Бессрочная подписка остаётся бессрочной.
func renew(sub *models.Subscription, ext *subscription.Period, now time.Time) error {
	sub.Status = models.SubscriptionActive
	if sub.PlanType == models.PlanLifetime {
		sub.ExpiresAt = nil
		return nil
	}

	period, ok := subscription.BillingPeriod(sub.PlanType)
	if ext != nil && !ext.IsZero() {
		period, ok = *ext, true
	}
	if !ok {
		return fmt.Errorf("%w: no billing period for plan %q", models.ErrInvariantViolation, sub.PlanType)
	}

	base := now
	if sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
		base = *sub.ExpiresAt
	}
	expires := period.AddTo(base)
	sub.ExpiresAt = &expires
	return nil
}

func (s *Service) currency(requested string, service *models.Service) string {
	switch {
	case requested != "":
		return strings.ToUpper(requested)
	case service.Currency != "":
		return service.Currency
	}
	return s.defaultCurrency
}

func (s *Service) notify(ctx context.Context, msg models.PaymentRequestMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, RoutingKeyPaymentRequested, msg); err != nil {
		s.log.Error("failed to publish payment request",
			slog.Int64("payment_id", msg.PaymentID),
			sl.Err(err))
	}
}

func (s *Service) observe(status string) {
	if s.metrics != nil {
		s.metrics.ObservePayment(status)
	}
}

func (s *Service) audit(ctx context.Context, actor models.Actor, action, table string, id int64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	return s.repo.AppendAudit(ctx, models.AuditEntry{
		ActorID:     actor.ID,
		Action:      action,
		TargetTable: table,
		TargetID:    strconv.FormatInt(id, 10),
		Payload:     raw,
	})
}

func requireAdmin(actor models.Actor) error {
	if actor.ID == "" || !actor.Role.IsAdmin() {
		return models.ErrUnauthorized
	}
	return nil
}
