package models

import "time"

// PlanType тип тарифного плана подписки.
type PlanType string

const (
	PlanMonthly  PlanType = "monthly"
	PlanYearly   PlanType = "yearly"
	PlanLifetime PlanType = "lifetime"
	PlanTrial    PlanType = "trial"
)

// Valid проверяет, что тип плана известен.
func (p PlanType) Valid() bool {
	switch p {
	case PlanMonthly, PlanYearly, PlanLifetime, PlanTrial:
		return true
	}
	return false
}

// SubscriptionStatus статус записи подписки.
type SubscriptionStatus string

const (
	// SubscriptionPending ожидает подтверждения оплаты. Доступа не даёт никогда.
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionInactive  SubscriptionStatus = "inactive"
)

// Valid проверяет, что статус известен.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionPending, SubscriptionActive, SubscriptionExpired, SubscriptionCancelled, SubscriptionInactive:
		return true
	}
	return false
}

// Subscription предоставляет одной учётной записи доступ к одному сервису на интервал.
// ExpiresAt == nil означает бессрочную подписку (только для PlanLifetime).
// Запись со статусом active и ExpiresAt в прошлом считается устаревшей, а не истёкшей:
// сравнение с текущим временем выполняется при каждом вычислении доступа.
type Subscription struct {
	ID        int64              `json:"id"`
	AccountID string             `json:"account_id"`
	ServiceID int64              `json:"service_id"`
	PlanType  PlanType           `json:"plan_type"`
	Status    SubscriptionStatus `json:"status"`
	StartsAt  time.Time          `json:"starts_at"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	RenewedBy *string            `json:"renewed_by,omitempty"`
	RenewedAt *time.Time         `json:"renewed_at,omitempty"`
}

// CurrentAt сообщает, действует ли подписка в момент now.
// Граница строгая: при now == ExpiresAt подписка уже не действует.
func (s Subscription) CurrentAt(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
