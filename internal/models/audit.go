package models

import (
	"encoding/json"
	"time"
)

// Действия, записываемые в журнал аудита.
const (
	AuditSubscriptionCreate = "subscription.create"
	AuditSubscriptionEdit   = "subscription.edit"
	AuditSubscriptionCancel = "subscription.cancel"
	AuditSubscriptionRenew  = "subscription.renew"
	AuditPaymentApprove     = "payment.approve"
	AuditPaymentReject      = "payment.reject"
	AuditAccountActive      = "account.set_active"
)

// AuditEntry запись журнала аудита. Журнал только дополняется.
type AuditEntry struct {
	ID          int64           `json:"id"`
	ActorID     string          `json:"actor_id"`
	Action      string          `json:"action"`
	TargetTable string          `json:"target_table"`
	TargetID    string          `json:"target_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
