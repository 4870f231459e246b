package models

import (
	"encoding/json"
	"time"
)

// Provider identifies a payment provider integration.
type Provider string

const (
	ProviderRazorpay Provider = "razorpay"
	ProviderPayPal   Provider = "paypal"
	ProviderStripe   Provider = "stripe"
)

// OrderStatus is the canonical lifecycle of a provider order.
type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusAuthorized OrderStatus = "authorized"
	OrderStatusCaptured   OrderStatus = "captured"
	OrderStatusFailed     OrderStatus = "failed"
)

// RefundStatus is the canonical lifecycle of a refund.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// RefundState summarizes how much of a payment has been refunded.
type RefundState string

const (
	RefundStateNone    RefundState = "none"
	RefundStatePartial RefundState = "partial"
	RefundStateFull    RefundState = "full"
)

// PaymentOrder is returned by CreateOrder. Amount is always in minor units.
type PaymentOrder struct {
	Provider        Provider          `json:"provider"`
	ProviderOrderID string            `json:"provider_order_id"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          OrderStatus       `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	// ApprovalURL is set by redirect-based providers (PayPal).
	ApprovalURL string `json:"approval_url,omitempty"`
	// ClientSecret is set by providers that confirm on the client (Stripe).
	ClientSecret string `json:"client_secret,omitempty"`
}

// PaymentVerificationResult is produced by VerifyPayment and GetStatus.
type PaymentVerificationResult struct {
	Valid          bool        `json:"valid"`
	Provider       Provider    `json:"provider"`
	PaymentID      string      `json:"payment_id"`
	OrderID        string      `json:"order_id"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	Status         OrderStatus `json:"status"`
	ProviderStatus string      `json:"provider_status"`
	Method         string      `json:"method,omitempty"`
	PayerEmail     string      `json:"payer_email,omitempty"`
	PayerContact   string      `json:"payer_contact,omitempty"`
	AmountRefunded int64       `json:"amount_refunded"`
	RefundState    RefundState `json:"refund_state"`
	CreatedAt      time.Time   `json:"created_at,omitempty"`
}

// PaymentConfirmation carries the provider-specific fields a client sends
// back after checkout. Signature-based providers need all three ids; status
// poll providers only need PaymentID (or OrderID).
type PaymentConfirmation struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	PayerID   string `json:"payer_id,omitempty"`
}

// Refund is the result of RefundPayment. A nil Amount request means a full refund.
type Refund struct {
	RefundID        string       `json:"refund_id"`
	Provider        Provider     `json:"provider"`
	SourcePaymentID string       `json:"source_payment_id"`
	Amount          *int64       `json:"amount,omitempty"`
	Currency        string       `json:"currency,omitempty"`
	Status          RefundStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// EventKind is the canonical webhook event taxonomy.
type EventKind string

const (
	EventPaymentAuthorized EventKind = "PaymentAuthorized"
	EventPaymentCaptured   EventKind = "PaymentCaptured"
	EventPaymentFailed     EventKind = "PaymentFailed"
	EventRefundCreated     EventKind = "RefundCreated"
	EventRefundFailed      EventKind = "RefundFailed"
	EventOrderPaid         EventKind = "OrderPaid"
	EventUnknown           EventKind = "Unknown"
)

// CanonicalWebhookEvent is the provider-agnostic form of a verified webhook delivery.
type CanonicalWebhookEvent struct {
	Provider       Provider        `json:"provider"`
	EventID        string          `json:"event_id"`
	Kind           EventKind       `json:"kind"`
	RawType        string          `json:"raw_type"`
	OccurredAt     time.Time       `json:"occurred_at"`
	OrderID        string          `json:"order_id,omitempty"`
	PaymentID      string          `json:"payment_id,omitempty"`
	RefundID       string          `json:"refund_id,omitempty"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	ProviderStatus string          `json:"provider_status,omitempty"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty"`
}

// PaymentUpdate is what the dispatcher hands to the business callback.
type PaymentUpdate struct {
	Provider       Provider
	OrderID        string
	PaymentID      string
	RefundID       string
	Kind           EventKind
	Amount         int64
	Currency       string
	ProviderStatus string
}

// UpdateFromEvent extracts the business-facing fields of an event.
func UpdateFromEvent(ev *CanonicalWebhookEvent) PaymentUpdate {
	return PaymentUpdate{
		Provider:       ev.Provider,
		OrderID:        ev.OrderID,
		PaymentID:      ev.PaymentID,
		RefundID:       ev.RefundID,
		Kind:           ev.Kind,
		Amount:         ev.Amount,
		Currency:       ev.Currency,
		ProviderStatus: ev.ProviderStatus,
	}
}
