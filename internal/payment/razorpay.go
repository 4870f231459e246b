package payment

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"paygate/internal/models"
	"paygate/internal/pkg/httpclient"
)

const razorpayBaseURL = "https://api.razorpay.com"

// RazorpayConfig holds CardNetworkGateway credentials.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// CardNetworkGateway implements Gateway for Razorpay.
//
// Verification is signature based: the checkout form hands back
// razorpay_order_id, razorpay_payment_id and razorpay_signature, where the
// signature is HMAC-SHA256(order_id + "|" + payment_id) keyed by the key
// secret. Webhooks are signed over the raw body with the webhook secret.
type CardNetworkGateway struct {
	cfg    RazorpayConfig
	client *httpclient.Client
}

// NewCardNetworkGateway validates credentials and builds the adapter.
func NewCardNetworkGateway(cfg RazorpayConfig) (*CardNetworkGateway, error) {
	var missing []string
	if cfg.KeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if cfg.KeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if cfg.WebhookSecret == "" {
		missing = append(missing, "RAZORPAY_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return nil, newError(KindInvalidConfig, models.ProviderRazorpay, "init", "missing "+strings.Join(missing, ", "), nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = razorpayBaseURL
	}

	return &CardNetworkGateway{
		cfg: cfg,
		client: httpclient.New().
			WithTimeout(cfg.Timeout).
			WithBaseURL(cfg.BaseURL).
			WithBasicAuth(cfg.KeyID, cfg.KeySecret).
			WithCircuitBreaker("razorpay"),
	}, nil
}

func (g *CardNetworkGateway) Name() models.Provider { return models.ProviderRazorpay }

func (g *CardNetworkGateway) SignatureHeader() string { return "X-Razorpay-Signature" }

type razorpayOrder struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

type razorpayPayment struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	OrderID        string `json:"order_id"`
	Method         string `json:"method"`
	AmountRefunded int64  `json:"amount_refunded"`
	RefundStatus   string `json:"refund_status"`
	Email          string `json:"email"`
	Contact        string `json:"contact"`
	CreatedAt      int64  `json:"created_at"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func razorpayMessage(body []byte) string {
	var e struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Description
}

func razorpayStatus(status string) models.OrderStatus {
	switch status {
	case "authorized":
		return models.OrderStatusAuthorized
	case "captured", "paid":
		return models.OrderStatusCaptured
	case "failed":
		return models.OrderStatusFailed
	default:
		return models.OrderStatusCreated
	}
}

func (g *CardNetworkGateway) CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (*models.PaymentOrder, error) {
	if err := validateAmount(models.ProviderRazorpay, "create_order", amount, currency); err != nil {
		return nil, err
	}
	currency = strings.ToUpper(currency)

	receipt := metadata["order_id"]
	if receipt == "" {
		receipt = "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	}
	body := map[string]interface{}{
		"amount":   ToMinorUnits(amount, currency),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(metadata) > 0 {
		body["notes"] = metadata
	}

	var order razorpayOrder
	resp, err := g.client.Post(ctx, "/v1/orders", body)
	if err := decodeResponse(models.ProviderRazorpay, "create_order", resp, err, &order, razorpayMessage); err != nil {
		return nil, err
	}

	return &models.PaymentOrder{
		Provider:        models.ProviderRazorpay,
		ProviderOrderID: order.ID,
		Amount:          order.Amount,
		Currency:        strings.ToUpper(order.Currency),
		Status:          models.OrderStatusCreated,
		CreatedAt:       unixOrNow(order.CreatedAt),
		Metadata:        metadata,
	}, nil
}

func (g *CardNetworkGateway) VerifyPayment(ctx context.Context, c models.PaymentConfirmation) (*models.PaymentVerificationResult, error) {
	if c.OrderID == "" || c.PaymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderRazorpay, "verify", "order_id and payment_id are required", nil)
	}
	if !VerifyHMAC(g.cfg.KeySecret, razorpayPaymentCanonical(c.OrderID, c.PaymentID), c.Signature) {
		return nil, newError(KindSignatureMismatch, models.ProviderRazorpay, "verify", "", nil)
	}

	p, err := g.fetchPayment(ctx, c.PaymentID, "verify")
	if err != nil {
		return nil, err
	}
	if p.OrderID != "" && p.OrderID != c.OrderID {
		return nil, newError(KindPaymentNotSucceeded, models.ProviderRazorpay, "verify", "payment belongs to another order", nil)
	}
	if p.Status != "authorized" && p.Status != "captured" {
		return nil, newError(KindPaymentNotSucceeded, models.ProviderRazorpay, "verify", "payment status "+p.Status, nil)
	}

	result := g.paymentSnapshot(p)
	result.Valid = true
	return result, nil
}

func (g *CardNetworkGateway) RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.Refund, error) {
	if paymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderRazorpay, "refund", "payment id is required", nil)
	}

	body := map[string]interface{}{}
	if amount != nil {
		p, err := g.fetchPayment(ctx, paymentID, "refund")
		if err != nil {
			return nil, err
		}
		if err := validateAmount(models.ProviderRazorpay, "refund", *amount, p.Currency); err != nil {
			return nil, err
		}
		body["amount"] = ToMinorUnits(*amount, p.Currency)
	}

	var r razorpayRefund
	resp, err := g.client.Post(ctx, "/v1/payments/"+url.PathEscape(paymentID)+"/refund", body)
	if err := decodeRefundResponse(models.ProviderRazorpay, resp, err, &r, razorpayMessage); err != nil {
		return nil, err
	}

	refunded := r.Amount
	return &models.Refund{
		RefundID:        r.ID,
		Provider:        models.ProviderRazorpay,
		SourcePaymentID: firstNonEmpty(r.PaymentID, paymentID),
		Amount:          &refunded,
		Currency:        strings.ToUpper(r.Currency),
		Status:          razorpayRefundStatus(r.Status),
		CreatedAt:       unixOrNow(r.CreatedAt),
	}, nil
}

func razorpayRefundStatus(status string) models.RefundStatus {
	switch status {
	case "processed":
		return models.RefundStatusCompleted
	case "failed":
		return models.RefundStatusFailed
	default:
		return models.RefundStatusPending
	}
}

// GetStatus accepts a payment id or, when the payment lookup 404s, an order id.
func (g *CardNetworkGateway) GetStatus(ctx context.Context, paymentID string) (*models.PaymentVerificationResult, error) {
	if paymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderRazorpay, "status", "id is required", nil)
	}

	p, err := g.fetchPayment(ctx, paymentID, "status")
	if err == nil {
		return g.paymentSnapshot(p), nil
	}
	if KindOf(err) != KindNotFound {
		return nil, err
	}

	var order razorpayOrder
	resp, err := g.client.Get(ctx, "/v1/orders/"+url.PathEscape(paymentID))
	if err := decodeResponse(models.ProviderRazorpay, "status", resp, err, &order, razorpayMessage); err != nil {
		return nil, err
	}
	return &models.PaymentVerificationResult{
		Provider:       models.ProviderRazorpay,
		OrderID:        order.ID,
		Amount:         order.Amount,
		Currency:       strings.ToUpper(order.Currency),
		Status:         razorpayStatus(order.Status),
		ProviderStatus: order.Status,
		RefundState:    models.RefundStateNone,
		CreatedAt:      unixOrNow(order.CreatedAt),
	}, nil
}

func (g *CardNetworkGateway) HandleWebhook(_ context.Context, body []byte, signature string) (*models.CanonicalWebhookEvent, error) {
	if !VerifyHMAC(g.cfg.WebhookSecret, body, signature) {
		return nil, newError(KindSignatureMismatch, models.ProviderRazorpay, "webhook", "", nil)
	}
	return NormalizeRazorpay(body)
}

func (g *CardNetworkGateway) fetchPayment(ctx context.Context, id, op string) (*razorpayPayment, error) {
	var p razorpayPayment
	resp, err := g.client.Get(ctx, "/v1/payments/"+url.PathEscape(id))
	if err := decodeResponse(models.ProviderRazorpay, op, resp, err, &p, razorpayMessage); err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *CardNetworkGateway) paymentSnapshot(p *razorpayPayment) *models.PaymentVerificationResult {
	state := RefundStateOf(p.Amount, p.AmountRefunded)
	switch p.RefundStatus {
	case "full":
		state = models.RefundStateFull
	case "partial":
		state = models.RefundStatePartial
	}
	return &models.PaymentVerificationResult{
		Provider:       models.ProviderRazorpay,
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Currency:       strings.ToUpper(p.Currency),
		Status:         razorpayStatus(p.Status),
		ProviderStatus: p.Status,
		Method:         p.Method,
		PayerEmail:     p.Email,
		PayerContact:   p.Contact,
		AmountRefunded: p.AmountRefunded,
		RefundState:    state,
		CreatedAt:      unixOrNow(p.CreatedAt),
	}
}
