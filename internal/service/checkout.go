package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paygate/internal/models"
	"paygate/internal/payment"
	"paygate/internal/webhook"
)

//go:generate mockgen -destination=mocks/mock_order_store.go -package=mocks paygate/internal/service OrderStore

// OrderStore is the persistence the checkout flow needs.
type OrderStore interface {
	Create(ctx context.Context, rec *models.PaymentRecord) error
	FindByReference(ctx context.Context, provider models.Provider, id string) (*models.PaymentRecord, error)
	FindStale(ctx context.Context, before time.Time, limit int) ([]models.PaymentRecord, error)
	MarkPolled(ctx context.Context, ids []uint, at time.Time) error
	ApplyStatus(ctx context.Context, provider models.Provider, orderID, paymentID string, target models.OrderStatus, providerStatus string) error
	SaveRefund(ctx context.Context, refund *models.RefundRecord) error
}

var ErrInvalidRequest = errors.New("invalid checkout request")

// CreateOrderRequest is the input of CheckoutService.CreateOrder. Amount is
// in major units.
type CreateOrderRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// CheckoutService ties the active gateway to order persistence.
type CheckoutService struct {
	gateway payment.Gateway
	store   OrderStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewCheckoutService(gateway payment.Gateway, store OrderStore, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		store:   store,
		logger:  logger.Named("checkout"),
		now:     time.Now,
	}
}

// CreateOrder registers the order with the provider and persists it. A
// missing metadata order_id is filled with a fresh uuid used as receipt.
func (s *CheckoutService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.PaymentOrder, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if metadata["order_id"] == "" {
		metadata["order_id"] = uuid.NewString()
	}

	order, err := s.gateway.CreateOrder(ctx, req.Amount, currency, metadata)
	if err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(metadata)
	rec := &models.PaymentRecord{
		Provider:        string(order.Provider),
		ProviderOrderID: order.ProviderOrderID,
		OrderRef:        metadata["order_id"],
		UserRef:         metadata["user_id"],
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          string(order.Status),
		RefundState:     string(models.RefundStateNone),
		Metadata:        string(meta),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		s.logger.Error("failed to persist order",
			zap.String("provider", rec.Provider),
			zap.String("provider_order_id", rec.ProviderOrderID),
			zap.Error(err))
		return nil, fmt.Errorf("persist order %s: %w", rec.ProviderOrderID, err)
	}

	s.logger.Info("order created",
		zap.String("provider", rec.Provider),
		zap.String("provider_order_id", rec.ProviderOrderID),
		zap.String("order_ref", rec.OrderRef),
		zap.Int64("amount", rec.Amount),
		zap.String("currency", rec.Currency))
	return order, nil
}

// VerifyPayment checks a client confirmation and records the resulting
// status. The provider result is returned even if the local update fails;
// webhooks and the reconciler converge the row later.
func (s *CheckoutService) VerifyPayment(ctx context.Context, c models.PaymentConfirmation) (*models.PaymentVerificationResult, error) {
	result, err := s.gateway.VerifyPayment(ctx, c)
	if err != nil {
		return nil, err
	}
	if result.Valid {
		s.applyStatus(ctx, result.Provider, firstNonEmpty(result.OrderID, c.OrderID), result.PaymentID, result.Status, result.ProviderStatus)
	}
	return result, nil
}

// RefundPayment refunds through the gateway and stores the refund.
func (s *CheckoutService) RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.RefundRecord, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	}

	refund, err := s.gateway.RefundPayment(ctx, paymentID, amount)
	if err != nil {
		return nil, err
	}

	rec := &models.RefundRecord{
		Provider:        string(refund.Provider),
		RefundID:        refund.RefundID,
		SourcePaymentID: firstNonEmpty(refund.SourcePaymentID, paymentID),
		Amount:          refund.Amount,
		Currency:        refund.Currency,
		Status:          string(refund.Status),
		CreatedAt:       refund.CreatedAt,
	}
	if err := s.store.SaveRefund(ctx, rec); err != nil {
		s.logger.Error("failed to record refund",
			zap.String("refund_id", rec.RefundID),
			zap.String("payment_id", rec.SourcePaymentID),
			zap.Error(err))
	}
	return rec, nil
}

// GetStatus returns the provider's current view of a payment or order.
func (s *CheckoutService) GetStatus(ctx context.Context, id string) (*models.PaymentVerificationResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	}
	return s.gateway.GetStatus(ctx, id)
}

const (
	reconcileBatch      = 100
	reconcileMaxBatches = 50
)

// Reconcile polls the provider for open orders idle since before staleAfter
// and marks orders older than expireAfter with no progress as failed. Polled
// orders are stamped so each batch moves on to the next ones. It returns the
// number of orders inspected.
func (s *CheckoutService) Reconcile(ctx context.Context, staleAfter, expireAfter time.Duration) (int, error) {
	now := s.now()
	before := now.Add(-staleAfter)

	total := 0
	for batch := 0; batch < reconcileMaxBatches; batch++ {
		records, err := s.store.FindStale(ctx, before, reconcileBatch)
		if err != nil {
			return total, err
		}

		ids := make([]uint, 0, len(records))
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			s.reconcileOne(ctx, rec, now, expireAfter)
			ids = append(ids, rec.ID)
			total++
		}

		if err := s.store.MarkPolled(ctx, ids, now); err != nil {
			return total, fmt.Errorf("mark polled: %w", err)
		}
		if len(records) < reconcileBatch {
			break
		}
	}
	return total, nil
}

func (s *CheckoutService) reconcileOne(ctx context.Context, rec models.PaymentRecord, now time.Time, expireAfter time.Duration) {
	provider := models.Provider(rec.Provider)

	snap, err := s.gateway.GetStatus(ctx, firstNonEmpty(rec.PaymentID, rec.ProviderOrderID))
	switch {
	case err != nil && !errors.Is(err, payment.ErrNotFound):
		s.logger.Warn("status poll failed",
			zap.String("provider_order_id", rec.ProviderOrderID),
			zap.Error(err))
		return
	case err == nil && snap.Status != models.OrderStatus(rec.Status) && snap.Status != models.OrderStatusCreated:
		s.applyStatus(ctx, provider, rec.ProviderOrderID, snap.PaymentID, snap.Status, snap.ProviderStatus)
		return
	}

	if now.Sub(rec.CreatedAt) > expireAfter {
		s.applyStatus(ctx, provider, rec.ProviderOrderID, "", models.OrderStatusFailed, "expired")
	}
}

func (s *CheckoutService) applyStatus(ctx context.Context, provider models.Provider, orderID, paymentID string, status models.OrderStatus, providerStatus string) {
	err := s.store.ApplyStatus(ctx, provider, orderID, paymentID, status, providerStatus)
	switch {
	case err == nil:
		s.logger.Info("order status updated",
			zap.String("provider", string(provider)),
			zap.String("order_id", orderID),
			zap.String("status", string(status)))
	case errors.Is(err, webhook.ErrTransitionRejected):
		s.logger.Info("order status unchanged",
			zap.String("order_id", orderID),
			zap.String("observed", string(status)),
			zap.Error(err))
	default:
		s.logger.Error("failed to update order status",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
