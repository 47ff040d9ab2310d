package models

import "time"

// PaymentStatus статус платежа.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// Valid проверяет, что статус известен.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected:
		return true
	}
	return false
}

// Terminal сообщает, что из статуса нет переходов.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentApproved || s == PaymentRejected
}

// Payment — подтверждение оплаты, загруженное владельцем и проверяемое администратором.
type Payment struct {
	ID             int64         `json:"id"`
	AccountID      string        `json:"account_id"`
	SubscriptionID int64         `json:"subscription_id"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	ProofImageRef  string        `json:"proof_image_ref"`
	Status         PaymentStatus `json:"status"`
	ProcessedBy    *string       `json:"processed_by,omitempty"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// PaymentFilter параметры выборки платежей.
type PaymentFilter struct {
	AccountID *string
	Status    *PaymentStatus
	Limit     int
	Offset    int
}

// PaymentRequestMessage — сообщение для внешнего сервиса уведомлений о новом платеже.
type PaymentRequestMessage struct {
	PaymentID    int64  `json:"payment_id"`
	ServiceName  string `json:"service_name"`
	AccountLabel string `json:"account_label"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}
