package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paygate/internal/models"
	"paygate/internal/pkg/httpclient"
)

const (
	stripeBaseURL          = "https://api.stripe.com"
	stripeDefaultTolerance = 5 * time.Minute
)

// StripeConfig holds InternationalCardGateway credentials.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	BaseURL          string
	WebhookTolerance time.Duration
	Timeout          time.Duration
}

// InternationalCardGateway implements Gateway for Stripe PaymentIntents.
//
// Verification polls the intent and requires status "succeeded". Webhooks
// carry Stripe-Signature: t=<unix>,v1=<hex> where v1 is
// HMAC-SHA256(t + "." + body) keyed by the endpoint secret. Deliveries
// older than the tolerance are refused.
type InternationalCardGateway struct {
	cfg    StripeConfig
	client *httpclient.Client
	now    func() time.Time
}

// NewInternationalCardGateway validates credentials and builds the adapter.
func NewInternationalCardGateway(cfg StripeConfig) (*InternationalCardGateway, error) {
	var missing []string
	if cfg.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if cfg.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return nil, newError(KindInvalidConfig, models.ProviderStripe, "init", "missing "+strings.Join(missing, ", "), nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = stripeBaseURL
	}
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = stripeDefaultTolerance
	}

	return &InternationalCardGateway{
		cfg: cfg,
		client: httpclient.New().
			WithTimeout(cfg.Timeout).
			WithBaseURL(cfg.BaseURL).
			WithBearerToken(cfg.SecretKey).
			WithCircuitBreaker("stripe"),
		now: time.Now,
	}, nil
}

func (g *InternationalCardGateway) Name() models.Provider { return models.ProviderStripe }

func (g *InternationalCardGateway) SignatureHeader() string { return "Stripe-Signature" }

type stripeIntent struct {
	ID                 string            `json:"id"`
	Amount             int64             `json:"amount"`
	AmountReceived     int64             `json:"amount_received"`
	Currency           string            `json:"currency"`
	Status             string            `json:"status"`
	ClientSecret       string            `json:"client_secret"`
	Created            int64             `json:"created"`
	Metadata           map[string]string `json:"metadata"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	LatestCharge       json.RawMessage   `json:"latest_charge"`
}

type stripeCharge struct {
	ID             string `json:"id"`
	AmountRefunded int64  `json:"amount_refunded"`
	Refunded       bool   `json:"refunded"`
	BillingDetails struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"billing_details"`
	PaymentMethodDetails struct {
		Type string `json:"type"`
	} `json:"payment_method_details"`
}

// charge returns the expanded latest charge, or nil when it was not expanded.
func (i *stripeIntent) charge() *stripeCharge {
	raw := bytes.TrimSpace(i.LatestCharge)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var c stripeCharge
	if json.Unmarshal(raw, &c) != nil {
		return nil
	}
	return &c
}

type stripeRefund struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
	Created       int64  `json:"created"`
}

func stripeMessage(body []byte) string {
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Error.Code != "" {
		return e.Error.Code + ": " + e.Error.Message
	}
	return e.Error.Message
}

func stripeStatus(status string) models.OrderStatus {
	switch status {
	case "requires_capture":
		return models.OrderStatusAuthorized
	case "succeeded":
		return models.OrderStatusCaptured
	case "canceled":
		return models.OrderStatusFailed
	default:
		// requires_payment_method, requires_confirmation, requires_action, processing
		return models.OrderStatusCreated
	}
}

func (g *InternationalCardGateway) CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (*models.PaymentOrder, error) {
	if err := validateAmount(models.ProviderStripe, "create_order", amount, currency); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(ToMinorUnits(amount, currency), 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent stripeIntent
	resp, err := g.client.PostForm(ctx, "/v1/payment_intents", form)
	if err := decodeResponse(models.ProviderStripe, "create_order", resp, err, &intent, stripeMessage); err != nil {
		return nil, err
	}

	return &models.PaymentOrder{
		Provider:        models.ProviderStripe,
		ProviderOrderID: intent.ID,
		Amount:          intent.Amount,
		Currency:        strings.ToUpper(intent.Currency),
		Status:          stripeStatus(intent.Status),
		CreatedAt:       unixOrNow(intent.Created),
		Metadata:        metadata,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

func (g *InternationalCardGateway) VerifyPayment(ctx context.Context, c models.PaymentConfirmation) (*models.PaymentVerificationResult, error) {
	id, err := requireConfirmationID(models.ProviderStripe, c.PaymentID, c.OrderID)
	if err != nil {
		return nil, err
	}

	intent, err := g.fetchIntent(ctx, id, "verify")
	if err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return nil, newError(KindPaymentNotSucceeded, models.ProviderStripe, "verify", "payment intent status "+intent.Status, nil)
	}

	result := intentSnapshot(intent)
	result.Valid = true
	return result, nil
}

func (g *InternationalCardGateway) RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.Refund, error) {
	if paymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderStripe, "refund", "payment id is required", nil)
	}

	form := url.Values{}
	form.Set("payment_intent", paymentID)
	if amount != nil {
		intent, err := g.fetchIntent(ctx, paymentID, "refund")
		if err != nil {
			return nil, err
		}
		if err := validateAmount(models.ProviderStripe, "refund", *amount, intent.Currency); err != nil {
			return nil, err
		}
		form.Set("amount", strconv.FormatInt(ToMinorUnits(*amount, intent.Currency), 10))
	}

	var r stripeRefund
	resp, err := g.client.PostForm(ctx, "/v1/refunds", form)
	if err := decodeRefundResponse(models.ProviderStripe, resp, err, &r, stripeMessage); err != nil {
		return nil, err
	}

	refunded := r.Amount
	return &models.Refund{
		RefundID:        r.ID,
		Provider:        models.ProviderStripe,
		SourcePaymentID: firstNonEmpty(r.PaymentIntent, paymentID),
		Amount:          &refunded,
		Currency:        strings.ToUpper(r.Currency),
		Status:          stripeRefundStatus(r.Status),
		CreatedAt:       unixOrNow(r.Created),
	}, nil
}

func stripeRefundStatus(status string) models.RefundStatus {
	switch status {
	case "succeeded":
		return models.RefundStatusCompleted
	case "failed", "canceled":
		return models.RefundStatusFailed
	default:
		return models.RefundStatusPending
	}
}

func (g *InternationalCardGateway) GetStatus(ctx context.Context, paymentID string) (*models.PaymentVerificationResult, error) {
	if paymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderStripe, "status", "id is required", nil)
	}
	intent, err := g.fetchIntent(ctx, paymentID, "status")
	if err != nil {
		return nil, err
	}
	return intentSnapshot(intent), nil
}

func (g *InternationalCardGateway) HandleWebhook(_ context.Context, body []byte, signature string) (*models.CanonicalWebhookEvent, error) {
	header, ok := parseStripeSignature(signature)
	if !ok {
		return nil, newError(KindSignatureMismatch, models.ProviderStripe, "webhook", "", nil)
	}

	age := g.now().Sub(header.issuedAt)
	if age > g.cfg.WebhookTolerance || age < -g.cfg.WebhookTolerance {
		return nil, newError(KindSignatureMismatch, models.ProviderStripe, "webhook", "timestamp outside tolerance", nil)
	}

	canonical := stripeCanonical(header.timestamp, body)
	for _, sig := range header.signatures {
		if VerifyHMAC(g.cfg.WebhookSecret, canonical, sig) {
			return NormalizeStripe(body)
		}
	}
	return nil, newError(KindSignatureMismatch, models.ProviderStripe, "webhook", "", nil)
}

func (g *InternationalCardGateway) fetchIntent(ctx context.Context, id, op string) (*stripeIntent, error) {
	req := g.client.R(ctx).SetQueryParam("expand[]", "latest_charge")
	resp, err := g.client.Execute(req, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id))

	var intent stripeIntent
	if err := decodeResponse(models.ProviderStripe, op, resp, err, &intent, stripeMessage); err != nil {
		return nil, err
	}
	return &intent, nil
}

func intentSnapshot(i *stripeIntent) *models.PaymentVerificationResult {
	result := &models.PaymentVerificationResult{
		Provider:       models.ProviderStripe,
		PaymentID:      i.ID,
		OrderID:        i.ID,
		Amount:         i.Amount,
		Currency:       strings.ToUpper(i.Currency),
		Status:         stripeStatus(i.Status),
		ProviderStatus: i.Status,
		RefundState:    models.RefundStateNone,
		CreatedAt:      unixOrNow(i.Created),
	}
	if len(i.PaymentMethodTypes) > 0 {
		result.Method = i.PaymentMethodTypes[0]
	}
	if c := i.charge(); c != nil {
		if c.PaymentMethodDetails.Type != "" {
			result.Method = c.PaymentMethodDetails.Type
		}
		result.PayerEmail = c.BillingDetails.Email
		result.PayerContact = c.BillingDetails.Phone
		result.AmountRefunded = c.AmountRefunded
		result.RefundState = RefundStateOf(i.Amount, c.AmountRefunded)
		if c.Refunded {
			result.RefundState = models.RefundStateFull
		}
	}
	return result
}
