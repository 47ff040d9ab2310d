package subscription

import "github.com/magabrotheeeer/entitlement-core/internal/models"

type transition struct {
	from models.SubscriptionStatus
	to   models.SubscriptionStatus
}

// validTransitions допустимые смены статуса при редактировании.
// Вернуть запись в pending нельзя.
var validTransitions = map[transition]bool{
	{models.SubscriptionPending, models.SubscriptionActive}:     true, // оплата подтверждена вручную
	{models.SubscriptionPending, models.SubscriptionCancelled}:  true,
	{models.SubscriptionPending, models.SubscriptionInactive}:   true,
	{models.SubscriptionPending, models.SubscriptionExpired}:    true,
	{models.SubscriptionActive, models.SubscriptionExpired}:     true,
	{models.SubscriptionActive, models.SubscriptionCancelled}:   true,
	{models.SubscriptionActive, models.SubscriptionInactive}:    true, // приостановка администратором
	{models.SubscriptionExpired, models.SubscriptionActive}:     true, // повторная активация
	{models.SubscriptionExpired, models.SubscriptionCancelled}:  true,
	{models.SubscriptionCancelled, models.SubscriptionActive}:   true,
	{models.SubscriptionInactive, models.SubscriptionActive}:    true,
	{models.SubscriptionInactive, models.SubscriptionExpired}:   true,
	{models.SubscriptionInactive, models.SubscriptionCancelled}: true,
}

// CanTransition проверяет смену статуса. Сохранение того же статуса допустимо всегда.
func CanTransition(from, to models.SubscriptionStatus) bool {
	if from == to {
		return true
	}
	return validTransitions[transition{from, to}]
}
