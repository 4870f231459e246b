package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"paygate/internal/models"
	"paygate/internal/pkg/httpclient"
)

const (
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
	paypalLiveURL    = "https://api-m.paypal.com"
)

// PayPalConfig holds WalletGateway credentials.
type PayPalConfig struct {
	ClientID      string
	ClientSecret  string
	WebhookSecret string
	Mode          string // "sandbox" or "live"
	BaseURL       string
	ReturnURL     string
	CancelURL     string
	Timeout       time.Duration
}

// WalletGateway implements Gateway for PayPal Orders v2.
//
// Verification polls the order: an APPROVED order is captured, and only a
// COMPLETED order with a completed capture is valid. Webhooks carry
// Paypal-Transmission-Sig, the hex HMAC-SHA256 of the raw body keyed by the
// shared webhook secret.
type WalletGateway struct {
	cfg    PayPalConfig
	client *httpclient.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewWalletGateway validates credentials and builds the adapter.
func NewWalletGateway(cfg PayPalConfig) (*WalletGateway, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "PAYPAL_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "PAYPAL_CLIENT_SECRET")
	}
	if cfg.WebhookSecret == "" {
		missing = append(missing, "PAYPAL_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return nil, newError(KindInvalidConfig, models.ProviderPayPal, "init", "missing "+strings.Join(missing, ", "), nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = paypalSandboxURL
		if cfg.Mode == "live" {
			cfg.BaseURL = paypalLiveURL
		}
	}

	return &WalletGateway{
		cfg: cfg,
		client: httpclient.New().
			WithTimeout(cfg.Timeout).
			WithBaseURL(cfg.BaseURL).
			WithCircuitBreaker("paypal"),
	}, nil
}

func (g *WalletGateway) Name() models.Provider { return models.ProviderPayPal }

func (g *WalletGateway) SignatureHeader() string { return "Paypal-Transmission-Sig" }

type paypalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paypalCapture struct {
	ID                string      `json:"id"`
	Status            string      `json:"status"`
	Amount            paypalMoney `json:"amount"`
	CreateTime        string      `json:"create_time"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

type paypalOrder struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CreateTime string `json:"create_time"`
	Payer      struct {
		EmailAddress string `json:"email_address"`
		PayerID      string `json:"payer_id"`
	} `json:"payer"`
	PurchaseUnits []struct {
		ReferenceID string      `json:"reference_id"`
		Amount      paypalMoney `json:"amount"`
		Payments    struct {
			Captures []paypalCapture `json:"captures"`
			Refunds  []paypalCapture `json:"refunds"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Links []paypalLink `json:"links"`
}

func paypalMessage(body []byte) string {
	var e struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Details []struct {
			Issue       string `json:"issue"`
			Description string `json:"description"`
		} `json:"details"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	parts := []string{}
	if e.Name != "" {
		parts = append(parts, e.Name)
	}
	for _, d := range e.Details {
		parts = append(parts, d.Issue)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.ErrorDescription != "" {
		parts = append(parts, e.ErrorDescription)
	}
	return strings.Join(parts, ": ")
}

func paypalStatus(status string) models.OrderStatus {
	switch status {
	case "APPROVED", "PENDING":
		return models.OrderStatusAuthorized
	case "COMPLETED", "PARTIALLY_REFUNDED", "REFUNDED":
		return models.OrderStatusCaptured
	case "VOIDED", "DECLINED", "FAILED":
		return models.OrderStatusFailed
	default:
		// CREATED, SAVED, PAYER_ACTION_REQUIRED
		return models.OrderStatusCreated
	}
}

// token returns a cached OAuth2 access token, refreshing it a minute early.
func (g *WalletGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	req := g.client.R(ctx).
		SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"})
	resp, err := g.client.Execute(req, http.MethodPost, "/v1/oauth2/token")

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := decodeResponse(models.ProviderPayPal, "auth", resp, err, &out, paypalMessage); err != nil {
		return "", err
	}

	g.accessToken = out.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return g.accessToken, nil
}

// call performs an authenticated request. body may be nil.
func (g *WalletGateway) call(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*httpclient.Response, error) {
	tok, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	req := g.client.R(ctx).SetAuthToken(tok).SetHeaders(headers)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	return g.client.Execute(req, method, path)
}

func (g *WalletGateway) CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (*models.PaymentOrder, error) {
	if err := validateAmount(models.ProviderPayPal, "create_order", amount, currency); err != nil {
		return nil, err
	}
	currency = strings.ToUpper(currency)
	minor := ToMinorUnits(amount, currency)

	unit := map[string]interface{}{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         FormatMajor(minor, currency),
		},
	}
	if ref := metadata["order_id"]; ref != "" {
		unit["reference_id"] = ref
	}
	if custom := compactMetadata(metadata); custom != "" {
		unit["custom_id"] = custom
	}
	body := map[string]interface{}{
		"intent":         "CAPTURE",
		"purchase_units": []interface{}{unit},
	}
	if g.cfg.ReturnURL != "" || g.cfg.CancelURL != "" {
		body["application_context"] = map[string]string{
			"return_url":  g.cfg.ReturnURL,
			"cancel_url":  g.cfg.CancelURL,
			"user_action": "PAY_NOW",
		}
	}

	resp, err := g.call(ctx, http.MethodPost, "/v2/checkout/orders", body, nil)
	if KindOf(err) != "" {
		return nil, err
	}
	var order paypalOrder
	if err := decodeResponse(models.ProviderPayPal, "create_order", resp, err, &order, paypalMessage); err != nil {
		return nil, err
	}

	return &models.PaymentOrder{
		Provider:        models.ProviderPayPal,
		ProviderOrderID: order.ID,
		Amount:          minor,
		Currency:        currency,
		Status:          paypalStatus(order.Status),
		CreatedAt:       parsePayPalTime(order.CreateTime),
		Metadata:        metadata,
		ApprovalURL:     firstNonEmpty(linkHref(order.Links, "approve"), linkHref(order.Links, "payer-action")),
	}, nil
}

func (g *WalletGateway) VerifyPayment(ctx context.Context, c models.PaymentConfirmation) (*models.PaymentVerificationResult, error) {
	id, err := requireConfirmationID(models.ProviderPayPal, c.OrderID, c.PaymentID)
	if err != nil {
		return nil, err
	}

	order, err := g.fetchOrder(ctx, id, "verify")
	if err != nil {
		return nil, err
	}

	if order.Status == "APPROVED" {
		// PayPal dedupes captures on PayPal-Request-Id.
		resp, err := g.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(id)+"/capture",
			map[string]interface{}{}, map[string]string{"PayPal-Request-Id": "capture-" + id})
		if KindOf(err) != "" {
			return nil, err
		}
		var captured paypalOrder
		if err := decodeResponse(models.ProviderPayPal, "verify", resp, err, &captured, paypalMessage); err != nil {
			return nil, err
		}
		order = &captured
	}

	if order.Status != "COMPLETED" {
		return nil, newError(KindPaymentNotSucceeded, models.ProviderPayPal, "verify", "order status "+order.Status, nil)
	}
	capture := firstCapture(order)
	if capture == nil || (capture.Status != "COMPLETED" && capture.Status != "PARTIALLY_REFUNDED" && capture.Status != "REFUNDED") {
		return nil, newError(KindPaymentNotSucceeded, models.ProviderPayPal, "verify", "capture not completed", nil)
	}

	result := orderSnapshot(order)
	result.Valid = true
	return result, nil
}

func (g *WalletGateway) RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.Refund, error) {
	if paymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderPayPal, "refund", "payment id is required", nil)
	}

	capture, err := g.resolveCapture(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(firstNonEmpty(capture.Amount.CurrencyCode, capture.Amount.Currency))

	body := map[string]interface{}{}
	var requested *int64
	if amount != nil {
		if err := validateAmount(models.ProviderPayPal, "refund", *amount, currency); err != nil {
			return nil, err
		}
		minor := ToMinorUnits(*amount, currency)
		requested = &minor
		body["amount"] = map[string]string{
			"currency_code": currency,
			"value":         FormatMajor(minor, currency),
		}
	}

	resp, err := g.call(ctx, http.MethodPost, "/v2/payments/captures/"+url.PathEscape(capture.ID)+"/refund", body, nil)
	if KindOf(err) != "" {
		return nil, err
	}
	var r paypalCapture
	if err := decodeRefundResponse(models.ProviderPayPal, resp, err, &r, paypalMessage); err != nil {
		return nil, err
	}

	refunded, _ := r.Amount.minor()
	switch {
	case refunded > 0:
	case requested != nil:
		refunded = *requested
	default:
		refunded, _ = capture.Amount.minor()
	}

	return &models.Refund{
		RefundID:        r.ID,
		Provider:        models.ProviderPayPal,
		SourcePaymentID: capture.ID,
		Amount:          &refunded,
		Currency:        currency,
		Status:          paypalRefundStatus(r.Status),
		CreatedAt:       parsePayPalTime(r.CreateTime),
	}, nil
}

func paypalRefundStatus(status string) models.RefundStatus {
	switch status {
	case "COMPLETED":
		return models.RefundStatusCompleted
	case "CANCELLED", "FAILED":
		return models.RefundStatusFailed
	default:
		return models.RefundStatusPending
	}
}

// GetStatus accepts an order id or, when the order lookup 404s, a capture id.
func (g *WalletGateway) GetStatus(ctx context.Context, paymentID string) (*models.PaymentVerificationResult, error) {
	if paymentID == "" {
		return nil, newError(KindInvalidRequest, models.ProviderPayPal, "status", "id is required", nil)
	}

	order, err := g.fetchOrder(ctx, paymentID, "status")
	if err == nil {
		return orderSnapshot(order), nil
	}
	if KindOf(err) != KindNotFound {
		return nil, err
	}

	capture, err := g.fetchCapture(ctx, paymentID, "status")
	if err != nil {
		return nil, err
	}
	amount, currency := capture.Amount.minor()
	state := models.RefundStateNone
	switch capture.Status {
	case "REFUNDED":
		state = models.RefundStateFull
	case "PARTIALLY_REFUNDED":
		state = models.RefundStatePartial
	}
	return &models.PaymentVerificationResult{
		Provider:       models.ProviderPayPal,
		PaymentID:      capture.ID,
		OrderID:        capture.SupplementaryData.RelatedIDs.OrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         paypalStatus(capture.Status),
		ProviderStatus: capture.Status,
		Method:         "paypal",
		RefundState:    state,
		CreatedAt:      parsePayPalTime(capture.CreateTime),
	}, nil
}

func (g *WalletGateway) HandleWebhook(_ context.Context, body []byte, signature string) (*models.CanonicalWebhookEvent, error) {
	if !VerifyHMAC(g.cfg.WebhookSecret, body, signature) {
		return nil, newError(KindSignatureMismatch, models.ProviderPayPal, "webhook", "", nil)
	}
	return NormalizePayPal(body)
}

func (g *WalletGateway) fetchOrder(ctx context.Context, id, op string) (*paypalOrder, error) {
	resp, err := g.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(id), nil, nil)
	if KindOf(err) != "" {
		return nil, err
	}
	var order paypalOrder
	if err := decodeResponse(models.ProviderPayPal, op, resp, err, &order, paypalMessage); err != nil {
		return nil, err
	}
	return &order, nil
}

func (g *WalletGateway) fetchCapture(ctx context.Context, id, op string) (*paypalCapture, error) {
	resp, err := g.call(ctx, http.MethodGet, "/v2/payments/captures/"+url.PathEscape(id), nil, nil)
	if KindOf(err) != "" {
		return nil, err
	}
	var capture paypalCapture
	if err := decodeResponse(models.ProviderPayPal, op, resp, err, &capture, paypalMessage); err != nil {
		return nil, err
	}
	return &capture, nil
}

// resolveCapture maps an order id to its capture, or accepts a capture id.
func (g *WalletGateway) resolveCapture(ctx context.Context, id string) (*paypalCapture, error) {
	order, err := g.fetchOrder(ctx, id, "refund")
	if err == nil {
		capture := firstCapture(order)
		if capture == nil {
			return nil, newError(KindPaymentNotRefundable, models.ProviderPayPal, "refund", "order has no capture", nil)
		}
		return capture, nil
	}
	if KindOf(err) != KindNotFound {
		return nil, err
	}
	return g.fetchCapture(ctx, id, "refund")
}

func firstCapture(o *paypalOrder) *paypalCapture {
	for i := range o.PurchaseUnits {
		if caps := o.PurchaseUnits[i].Payments.Captures; len(caps) > 0 {
			return &caps[0]
		}
	}
	return nil
}

func orderSnapshot(o *paypalOrder) *models.PaymentVerificationResult {
	result := &models.PaymentVerificationResult{
		Provider:       models.ProviderPayPal,
		PaymentID:      o.ID,
		OrderID:        o.ID,
		Status:         paypalStatus(o.Status),
		ProviderStatus: o.Status,
		Method:         "paypal",
		PayerEmail:     o.Payer.EmailAddress,
		RefundState:    models.RefundStateNone,
		CreatedAt:      parsePayPalTime(o.CreateTime),
	}
	if len(o.PurchaseUnits) == 0 {
		return result
	}

	unit := &o.PurchaseUnits[0]
	result.Amount, result.Currency = unit.Amount.minor()
	if c := firstCapture(o); c != nil {
		result.PaymentID = c.ID
		// capture replies omit the unit amount unless return=representation is asked for
		if result.Amount == 0 || result.Currency == "" {
			result.Amount, result.Currency = c.Amount.minor()
		}
	}
	for i := range unit.Payments.Refunds {
		r := &unit.Payments.Refunds[i]
		if r.Status != "COMPLETED" {
			continue
		}
		v, _ := r.Amount.minor()
		result.AmountRefunded += v
	}
	result.RefundState = RefundStateOf(result.Amount, result.AmountRefunded)
	return result
}

// compactMetadata renders metadata as sorted k=v pairs within custom_id's
// 127 character limit.
func compactMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		pair := k + "=" + metadata[k]
		if b.Len() > 0 {
			pair = ";" + pair
		}
		if b.Len()+len(pair) > 127 {
			break
		}
		b.WriteString(pair)
	}
	return b.String()
}

func linkHref(links []paypalLink, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

func parsePayPalTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
