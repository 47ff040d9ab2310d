package subscription

import (
	"time"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// Period длительность продления в календарных единицах.
type Period struct {
	Months int `json:"months,omitempty" validate:"gte=0"`
	Days   int `json:"days,omitempty" validate:"gte=0"`
}

// IsZero сообщает, что период пустой.
func (p Period) IsZero() bool {
	return p.Months == 0 && p.Days == 0
}

// AddTo прибавляет период к t.
func (p Period) AddTo(t time.Time) time.Time {
	return t.AddDate(0, p.Months, p.Days)
}

// BillingPeriod возвращает один расчётный период плана.
// Для PlanLifetime периода нет.
func BillingPeriod(plan models.PlanType) (Period, bool) {
	switch plan {
	case models.PlanMonthly:
		return Period{Months: 1}, true
	case models.PlanYearly:
		return Period{Months: 12}, true
	case models.PlanTrial:
		return Period{Days: 7}, true
	}
	return Period{}, false
}

// ComputeDefaultExpiry возвращает дату окончания по умолчанию для плана, начиная с from.
// Для PlanLifetime возвращает nil. Используется для предзаполнения форм администратора,
// при вычислении доступа не вызывается.
func ComputeDefaultExpiry(plan models.PlanType, from time.Time) *time.Time {
	period, ok := BillingPeriod(plan)
	if !ok {
		return nil
	}
	expires := period.AddTo(from)
	return &expires
}
