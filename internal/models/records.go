package models

import "time"

// PaymentRecord maps to the `payment_orders` table. One row per provider order;
// a retry creates a new row rather than mutating a captured one.
type PaymentRecord struct {
	ID              uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Provider        string     `gorm:"column:provider;size:32;index" json:"provider"`
	ProviderOrderID string     `gorm:"column:provider_order_id;size:191;uniqueIndex" json:"provider_order_id"`
	PaymentID       string     `gorm:"column:payment_id;size:191;index" json:"payment_id"`
	OrderRef        string     `gorm:"column:order_ref;size:191;index" json:"order_ref"`
	UserRef         string     `gorm:"column:user_ref;size:191" json:"user_ref"`
	Amount          int64      `gorm:"column:amount" json:"amount"`
	Currency        string     `gorm:"column:currency;size:8" json:"currency"`
	Status          string     `gorm:"column:status;size:32;index" json:"status"`
	ProviderStatus  string     `gorm:"column:provider_status;size:64" json:"provider_status"`
	AmountRefunded  int64      `gorm:"column:amount_refunded" json:"amount_refunded"`
	RefundState     string     `gorm:"column:refund_state;size:16" json:"refund_state"`
	Metadata        string     `gorm:"column:metadata;type:text" json:"metadata"`
	LastPolledAt    *time.Time `gorm:"column:last_polled_at;index" json:"last_polled_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_orders"
}

// RefundRecord maps to the `payment_refunds` table.
type RefundRecord struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Provider        string    `gorm:"column:provider;size:32" json:"provider"`
	RefundID        string    `gorm:"column:refund_id;size:191;uniqueIndex" json:"refund_id"`
	SourcePaymentID string    `gorm:"column:source_payment_id;size:191;index" json:"source_payment_id"`
	Amount          *int64    `gorm:"column:amount" json:"amount,omitempty"`
	Currency        string    `gorm:"column:currency;size:8" json:"currency"`
	Status          string    `gorm:"column:status;size:32" json:"status"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

func (RefundRecord) TableName() string {
	return "payment_refunds"
}

// WebhookLedgerEntry maps to the `webhook_ledger` table. Append-only.
type WebhookLedgerEntry struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Provider    string    `gorm:"column:provider;size:32;uniqueIndex:idx_ledger_key" json:"provider"`
	EventKey    string    `gorm:"column:event_key;size:191;uniqueIndex:idx_ledger_key" json:"event_key"`
	EventID     string    `gorm:"column:event_id;size:191" json:"event_id"`
	Kind        string    `gorm:"column:kind;size:32" json:"kind"`
	Outcome     string    `gorm:"column:outcome;size:16" json:"outcome"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at" json:"first_seen_at"`
}

func (WebhookLedgerEntry) TableName() string {
	return "webhook_ledger"
}
