package models

// Service представляет платный сервис платформы (например, "menu-maker").
// Цены информационные: используются в сообщении о платеже и не проверяются ядром.
type Service struct {
	ID           int64  `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	IsActive     bool   `json:"is_active"`
	PriceMonthly int64  `json:"price_monthly"`
	PriceYearly  int64  `json:"price_yearly"`
	Currency     string `json:"currency"`
}
