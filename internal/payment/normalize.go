package payment

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"paygate/internal/models"
)

// Raw provider event types mapped to canonical kinds. Anything not listed is
// EventUnknown and is acknowledged without reaching business logic.
var (
	razorpayEventKinds = map[string]models.EventKind{
		"payment.authorized": models.EventPaymentAuthorized,
		"payment.captured":   models.EventPaymentCaptured,
		"payment.failed":     models.EventPaymentFailed,
		"refund.created":     models.EventRefundCreated,
		"refund.processed":   models.EventRefundCreated,
		"refund.failed":      models.EventRefundFailed,
		"order.paid":         models.EventOrderPaid,
	}

	stripeEventKinds = map[string]models.EventKind{
		"payment_intent.amount_capturable_updated": models.EventPaymentAuthorized,
		"payment_intent.succeeded":                 models.EventPaymentCaptured,
		"payment_intent.payment_failed":            models.EventPaymentFailed,
		"charge.refunded":                          models.EventRefundCreated,
		"refund.created":                           models.EventRefundCreated,
		"refund.failed":                            models.EventRefundFailed,
		"checkout.session.completed":               models.EventOrderPaid,
	}

	paypalEventKinds = map[string]models.EventKind{
		"PAYMENT.AUTHORIZATION.CREATED": models.EventPaymentAuthorized,
		"CHECKOUT.ORDER.APPROVED":       models.EventPaymentAuthorized,
		"PAYMENT.CAPTURE.COMPLETED":     models.EventPaymentCaptured,
		"PAYMENT.SALE.COMPLETED":        models.EventPaymentCaptured,
		"PAYMENT.CAPTURE.DENIED":        models.EventPaymentFailed,
		"PAYMENT.CAPTURE.DECLINED":      models.EventPaymentFailed,
		"PAYMENT.SALE.DENIED":           models.EventPaymentFailed,
		"PAYMENT.CAPTURE.REFUNDED":      models.EventRefundCreated,
		"PAYMENT.SALE.REFUNDED":         models.EventRefundCreated,
		"CHECKOUT.ORDER.COMPLETED":      models.EventOrderPaid,
	}
)

// EventKindFor looks up the canonical kind of a raw provider event type.
func EventKindFor(provider models.Provider, rawType string) models.EventKind {
	var table map[string]models.EventKind
	switch provider {
	case models.ProviderRazorpay:
		table = razorpayEventKinds
	case models.ProviderStripe:
		table = stripeEventKinds
	case models.ProviderPayPal:
		table = paypalEventKinds
	}
	if kind, ok := table[rawType]; ok {
		return kind
	}
	return models.EventUnknown
}

func malformed(provider models.Provider, err error) error {
	return newError(KindInvalidRequest, provider, "webhook", "malformed event body", err)
}

// ── Razorpay ─────────────────────────────────────────────────────────

type razorpayEntity struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

type razorpayEnvelope struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"refund"`
		Order *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// NormalizeRazorpay converts a verified Razorpay webhook body.
func NormalizeRazorpay(body []byte) (*models.CanonicalWebhookEvent, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed(models.ProviderRazorpay, err)
	}

	ev := &models.CanonicalWebhookEvent{
		Provider:   models.ProviderRazorpay,
		Kind:       EventKindFor(models.ProviderRazorpay, env.Event),
		RawType:    env.Event,
		OccurredAt: unixOrNow(env.CreatedAt),
		RawPayload: json.RawMessage(body),
	}

	if p := env.Payload.Payment; p != nil {
		ev.PaymentID = p.Entity.ID
		ev.OrderID = p.Entity.OrderID
		ev.Amount = p.Entity.Amount
		ev.Currency = p.Entity.Currency
		ev.ProviderStatus = p.Entity.Status
		ev.EventID = p.Entity.ID
	}

	switch {
	case strings.HasPrefix(env.Event, "refund.") && env.Payload.Refund != nil:
		r := env.Payload.Refund.Entity
		ev.EventID = r.ID
		ev.RefundID = r.ID
		ev.PaymentID = r.PaymentID
		ev.Amount = r.Amount
		ev.Currency = r.Currency
		ev.ProviderStatus = r.Status
	case strings.HasPrefix(env.Event, "order.") && env.Payload.Order != nil:
		o := env.Payload.Order.Entity
		ev.EventID = o.ID
		ev.OrderID = o.ID
		ev.ProviderStatus = o.Status
		if ev.Amount == 0 {
			ev.Amount = o.Amount
			ev.Currency = o.Currency
		}
	}

	return ev, nil
}

// ── Stripe ───────────────────────────────────────────────────────────

type stripeObject struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	AmountTotal    int64  `json:"amount_total"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"payment_status"`
	PaymentIntent  string `json:"payment_intent"`
	Charge         string `json:"charge"`
}

type stripeEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object stripeObject `json:"object"`
	} `json:"data"`
}

// NormalizeStripe converts a verified Stripe webhook body.
func NormalizeStripe(body []byte) (*models.CanonicalWebhookEvent, error) {
	var env stripeEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed(models.ProviderStripe, err)
	}

	obj := env.Data.Object
	ev := &models.CanonicalWebhookEvent{
		Provider:       models.ProviderStripe,
		EventID:        obj.ID,
		Kind:           EventKindFor(models.ProviderStripe, env.Type),
		RawType:        env.Type,
		OccurredAt:     unixOrNow(env.Created),
		Currency:       strings.ToUpper(obj.Currency),
		ProviderStatus: obj.Status,
		RawPayload:     json.RawMessage(body),
	}
	if ev.EventID == "" {
		ev.EventID = env.ID
	}

	switch obj.Object {
	case "payment_intent":
		ev.PaymentID = obj.ID
		ev.OrderID = obj.ID
		ev.Amount = obj.Amount
	case "charge":
		ev.PaymentID = obj.PaymentIntent
		ev.OrderID = obj.PaymentIntent
		ev.Amount = obj.AmountRefunded
		// each further partial refund re-sends the same charge with a larger total
		if obj.ID != "" {
			ev.EventID = obj.ID + ":" + strconv.FormatInt(obj.AmountRefunded, 10)
		}
	case "refund":
		ev.RefundID = obj.ID
		ev.PaymentID = obj.PaymentIntent
		ev.OrderID = obj.PaymentIntent
		ev.Amount = obj.Amount
	case "checkout.session":
		ev.PaymentID = obj.PaymentIntent
		ev.OrderID = obj.PaymentIntent
		ev.Amount = obj.AmountTotal
		ev.ProviderStatus = obj.PaymentStatus
	default:
		ev.PaymentID = obj.ID
		ev.Amount = obj.Amount
	}

	return ev, nil
}

// ── PayPal ───────────────────────────────────────────────────────────

type paypalMoney struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
	// v1 sale resources
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

func (m *paypalMoney) minor() (int64, string) {
	if m == nil {
		return 0, ""
	}
	currency, value := m.CurrencyCode, m.Value
	if currency == "" {
		currency, value = m.Currency, m.Total
	}
	amount, err := ParseMajor(value, currency)
	if err != nil {
		return 0, strings.ToUpper(currency)
	}
	return amount, strings.ToUpper(currency)
}

type paypalResource struct {
	ID                string       `json:"id"`
	Status            string       `json:"status"`
	State             string       `json:"state"`
	Amount            *paypalMoney `json:"amount"`
	ParentPayment     string       `json:"parent_payment"`
	SaleID            string       `json:"sale_id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID   string `json:"order_id"`
			CaptureID string `json:"capture_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	PurchaseUnits []struct {
		Amount *paypalMoney `json:"amount"`
	} `json:"purchase_units"`
	Links []paypalLink `json:"links"`
}

type paypalEnvelope struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	CreateTime string         `json:"create_time"`
	Resource   paypalResource `json:"resource"`
}

// NormalizePayPal converts a verified PayPal webhook body.
func NormalizePayPal(body []byte) (*models.CanonicalWebhookEvent, error) {
	var env paypalEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed(models.ProviderPayPal, err)
	}

	res := env.Resource
	ev := &models.CanonicalWebhookEvent{
		Provider:       models.ProviderPayPal,
		EventID:        res.ID,
		Kind:           EventKindFor(models.ProviderPayPal, env.EventType),
		RawType:        env.EventType,
		OccurredAt:     time.Now().UTC(),
		ProviderStatus: firstNonEmpty(res.Status, res.State),
		RawPayload:     json.RawMessage(body),
	}
	if ts, err := time.Parse(time.RFC3339, env.CreateTime); err == nil {
		ev.OccurredAt = ts.UTC()
	}
	if ev.EventID == "" {
		ev.EventID = env.ID
	}

	ev.Amount, ev.Currency = res.Amount.minor()

	switch {
	case strings.HasPrefix(env.EventType, "CHECKOUT.ORDER."):
		ev.OrderID = res.ID
		ev.PaymentID = res.ID
		if len(res.PurchaseUnits) > 0 && ev.Amount == 0 {
			ev.Amount, ev.Currency = res.PurchaseUnits[0].Amount.minor()
		}
	case strings.HasSuffix(env.EventType, ".REFUNDED"):
		ev.RefundID = res.ID
		ev.PaymentID = firstNonEmpty(res.SaleID, linkTarget(res.Links, "up"))
		ev.OrderID = res.SupplementaryData.RelatedIDs.OrderID
	case strings.HasPrefix(env.EventType, "PAYMENT.SALE."):
		ev.PaymentID = res.ID
		ev.OrderID = res.ParentPayment
	default:
		ev.PaymentID = res.ID
		ev.OrderID = res.SupplementaryData.RelatedIDs.OrderID
	}

	return ev, nil
}

func linkTarget(links []paypalLink, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			if i := strings.LastIndex(strings.TrimRight(l.Href, "/"), "/"); i >= 0 {
				return strings.TrimRight(l.Href, "/")[i+1:]
			}
		}
	}
	return ""
}

func unixOrNow(secs int64) time.Time {
	if secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
