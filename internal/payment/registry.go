package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"paygate/internal/models"
)

// Settings selects and configures the active provider.
type Settings struct {
	Provider  string
	ReturnURL string
	CancelURL string
	Timeout   time.Duration

	Razorpay RazorpayConfig
	Stripe   StripeConfig
	PayPal   PayPalConfig
}

// ParseProvider resolves a configured provider name or one of its variant
// aliases.
func ParseProvider(name string) (models.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "razorpay", "cardnetwork", "card_network":
		return models.ProviderRazorpay, nil
	case "paypal", "wallet":
		return models.ProviderPayPal, nil
	case "stripe", "internationalcard", "international_card":
		return models.ProviderStripe, nil
	case "":
		return "", newError(KindInvalidConfig, "", "init", "PAYMENT_GATEWAY is not set", nil)
	default:
		return "", newError(KindInvalidConfig, "", "init", "unsupported payment gateway "+name, nil)
	}
}

// NewGateway constructs and validates the adapter selected by s.
func NewGateway(s Settings) (Gateway, error) {
	provider, err := ParseProvider(s.Provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case models.ProviderRazorpay:
		cfg := s.Razorpay
		if cfg.Timeout == 0 {
			cfg.Timeout = s.Timeout
		}
		gw, err := NewCardNetworkGateway(cfg)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case models.ProviderPayPal:
		cfg := s.PayPal
		if cfg.Timeout == 0 {
			cfg.Timeout = s.Timeout
		}
		if cfg.ReturnURL == "" {
			cfg.ReturnURL = s.ReturnURL
		}
		if cfg.CancelURL == "" {
			cfg.CancelURL = s.CancelURL
		}
		gw, err := NewWalletGateway(cfg)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		cfg := s.Stripe
		if cfg.Timeout == 0 {
			cfg.Timeout = s.Timeout
		}
		gw, err := NewInternationalCardGateway(cfg)
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
}

// Registry holds the one active adapter for the process. It is built once in
// main and passed to whoever needs the payment contract.
type Registry struct {
	settings Settings
	factory  func(Settings) (Gateway, error)
	logger   *zap.Logger

	mu     sync.RWMutex
	active Gateway
}

// NewRegistry creates an empty registry. Nothing is constructed until
// Initialize.
func NewRegistry(settings Settings, logger *zap.Logger) *Registry {
	return &Registry{
		settings: settings,
		factory:  NewGateway,
		logger:   logger.Named("payment"),
	}
}

// WithFactory swaps the adapter constructor.
func (r *Registry) WithFactory(factory func(Settings) (Gateway, error)) *Registry {
	r.factory = factory
	return r
}

// Initialize constructs the configured adapter on first call and returns the
// held one on every later call. Concurrent callers block until the first
// finishes. A failed initialization leaves the registry empty.
func (r *Registry) Initialize(ctx context.Context) (Gateway, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return r.active, nil
	}

	gw, err := r.factory(r.settings)
	if err != nil {
		r.logger.Error("payment gateway initialization failed",
			zap.String("gateway", r.settings.Provider),
			zap.Error(err))
		return nil, err
	}

	r.active = gw
	r.logger.Info("payment gateway initialized", zap.String("provider", string(gw.Name())))
	return gw, nil
}

// Instance returns the active adapter or a NotInitialized error.
func (r *Registry) Instance() (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == nil {
		return nil, newError(KindNotInitialized, "", "instance", "payment gateway not initialized", nil)
	}
	return r.active, nil
}

// Reset drops the active adapter. Used on shutdown and in tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()
}

// Name returns the active provider, or "" before initialization.
func (r *Registry) Name() models.Provider {
	gw, err := r.Instance()
	if err != nil {
		return ""
	}
	return gw.Name()
}

// SignatureHeader returns the active provider's webhook signature header.
func (r *Registry) SignatureHeader() string {
	gw, err := r.Instance()
	if err != nil {
		return ""
	}
	return gw.SignatureHeader()
}

func (r *Registry) CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (*models.PaymentOrder, error) {
	gw, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return gw.CreateOrder(ctx, amount, currency, metadata)
}

func (r *Registry) VerifyPayment(ctx context.Context, c models.PaymentConfirmation) (*models.PaymentVerificationResult, error) {
	gw, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return gw.VerifyPayment(ctx, c)
}

func (r *Registry) RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.Refund, error) {
	gw, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return gw.RefundPayment(ctx, paymentID, amount)
}

func (r *Registry) GetStatus(ctx context.Context, paymentID string) (*models.PaymentVerificationResult, error) {
	gw, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return gw.GetStatus(ctx, paymentID)
}

func (r *Registry) HandleWebhook(ctx context.Context, body []byte, signature string) (*models.CanonicalWebhookEvent, error) {
	gw, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return gw.HandleWebhook(ctx, body, signature)
}

var _ Gateway = (*Registry)(nil)
