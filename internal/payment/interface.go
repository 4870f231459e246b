package payment

import (
	"context"

	"paygate/internal/models"
)

// Gateway is the uniform contract every provider adapter implements.
// Amounts going in are major units; amounts coming out are minor units.
type Gateway interface {
	// Name returns the provider identifier.
	Name() models.Provider

	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader() string

	// CreateOrder registers a new payable order with the provider.
	CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (*models.PaymentOrder, error)

	// VerifyPayment confirms a client-reported payment. Valid is only ever
	// true after a signature check or an authoritative status fetch.
	VerifyPayment(ctx context.Context, confirmation models.PaymentConfirmation) (*models.PaymentVerificationResult, error)

	// RefundPayment refunds amount (major units), or the full captured
	// amount when amount is nil.
	RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.Refund, error)

	// GetStatus returns a snapshot of a payment or order.
	GetStatus(ctx context.Context, paymentID string) (*models.PaymentVerificationResult, error)

	// HandleWebhook verifies and normalizes a raw webhook delivery.
	HandleWebhook(ctx context.Context, body []byte, signature string) (*models.CanonicalWebhookEvent, error)
}
