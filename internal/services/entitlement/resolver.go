// Package entitlement вычисляет право учётной записи пользоваться сервисом в заданный момент.
//
// Evaluate чистая функция без обращения к хранилищу и часам; всё, что нужно для решения,
// передаётся во входных данных, текущее время передаётся явным параметром.
// Service загружает данные из хранилища и вызывает Evaluate.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Kind вид решения о доступе.
type Kind string

const (
	// NoAccount учётная запись не существует.
	NoAccount Kind = "no_account"
	// ActiveSubscription доступ по действующей подписке.
	ActiveSubscription Kind = "active_subscription"
	// Trial доступ только за счёт пробного периода.
	Trial Kind = "trial"
	// Expired доступа нет, но подписка или пробный период были.
	Expired Kind = "expired"
	// NoAccess доступа нет.
	NoAccess Kind = "no_access"
)

// AccessStatus результат вычисления доступа.
type AccessStatus struct {
	Kind           Kind          `json:"kind"`
	SubscriptionID int64         `json:"subscription_id,omitempty"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
	Remaining      time.Duration `json:"remaining,omitempty"`
}

// Granted сообщает, даёт ли статус право пользоваться сервисом.
func (s AccessStatus) Granted() bool {
	return s.Kind == ActiveSubscription || s.Kind == Trial
}

// EditorMode режим, в котором панель управления показывает редакторы.
type EditorMode string

const (
	EditorReadWrite EditorMode = "read-write"
	EditorReadOnly  EditorMode = "read-only"
	EditorBlocked   EditorMode = "blocked"
)

// EditorMode возвращает режим редакторов: при истёкшем доступе владелец
// видит свои данные, но не может их менять.
func (s AccessStatus) EditorMode() EditorMode {
	switch {
	case s.Granted():
		return EditorReadWrite
	case s.Kind == Expired:
		return EditorReadOnly
	default:
		return EditorBlocked
	}
}

// Input данные для вычисления доступа.
type Input struct {
	// Account nil, если учётная запись не найдена.
	Account *models.Account
	// Subscriptions вся история подписок пары (учётная запись, сервис), порядок не важен.
	Subscriptions []models.Subscription
	// TrialDuration длительность глобального пробного периода. Ноль отключает пробный период.
	TrialDuration time.Duration
}

// Evaluate применяет правила приоритета; первое совпавшее правило побеждает.
func Evaluate(in Input, now time.Time) AccessStatus {
	if in.Account == nil {
		return AccessStatus{Kind: NoAccount}
	}
	// выключенная учётная запись перекрывает даже действующую подписку
	if !in.Account.Active {
		return AccessStatus{Kind: NoAccess}
	}

	if best := mostFavorable(in.Subscriptions, now); best != nil {
		return AccessStatus{
			Kind:           ActiveSubscription,
			SubscriptionID: best.ID,
			ExpiresAt:      best.ExpiresAt,
		}
	}

	if in.TrialDuration > 0 {
		trialEnd := in.Account.CreatedAt.Add(in.TrialDuration)
		if now.Before(trialEnd) {
			return AccessStatus{Kind: Trial, Remaining: trialEnd.Sub(now)}
		}
		return AccessStatus{Kind: Expired}
	}

	if hasLapsedHistory(in.Subscriptions) {
		return AccessStatus{Kind: Expired}
	}
	return AccessStatus{Kind: NoAccess}
}

// mostFavorable выбирает действующую подписку: бессрочная важнее любой срочной,
// среди срочных с самой поздней датой окончания, при равенстве начатая позже.
func mostFavorable(subs []models.Subscription, now time.Time) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		s := &subs[i]
		if !s.CurrentAt(now) {
			continue
		}
		if best == nil || better(s, best) {
			best = s
		}
	}
	return best
}

func better(a, b *models.Subscription) bool {
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return true
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return false
	case a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ExpiresAt.After(*b.ExpiresAt)
	}
	return a.StartsAt.After(b.StartsAt)
}

// hasLapsedHistory сообщает, была ли у пары подписка, которая больше не действует.
// pending не считается: это ожидание оплаты, а не история доступа.
// active сюда попадает только устаревшей.
func hasLapsedHistory(subs []models.Subscription) bool {
	for _, s := range subs {
		switch s.Status {
		case models.SubscriptionExpired, models.SubscriptionCancelled, models.SubscriptionInactive,
			models.SubscriptionActive:
			return true
		}
	}
	return false
}
