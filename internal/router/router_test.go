package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"paygate/internal/handler"
	"paygate/internal/handler/mocks"
	"paygate/internal/models"
	"paygate/internal/payment"
)

func TestSetup(t *testing.T) {
	ctrl := gomock.NewController(t)
	checkout := mocks.NewMockCheckout(ctrl)
	orders := mocks.NewMockOrderLister(ctrl)
	proc := mocks.NewMockWebhookProcessor(ctrl)
	headers := mocks.NewMockSignatureSource(ctrl)
	headers.EXPECT().SignatureHeader().Return("Stripe-Signature").AnyTimes()

	e := echo.New()
	Setup(e, Handlers{
		Payment: handler.NewPaymentHandler(checkout, orders, zap.NewNop()),
		Webhook: handler.NewWebhookHandler(proc, headers, zap.NewNop()),
	}, zap.NewNop(), "secret", "")

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderXRequestID) == "" {
			t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
		}
	})

	t.Run("api requires token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/pi_1", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("status route", func(t *testing.T) {
		checkout.EXPECT().GetStatus(gomock.Any(), "pi_1").Return(&models.PaymentVerificationResult{Status: models.OrderStatusCaptured}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/payments/pi_1", nil)
		req.Header.Set("Token", "secret")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("webhook skips token auth", func(t *testing.T) {
		proc.EXPECT().Process(gomock.Any(), []byte(`{}`), "t=1,v1=00").Return(nil, payment.ErrSignatureMismatch)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=00")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestSetup_RefundRequiresConfiguredKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	headers := mocks.NewMockSignatureSource(ctrl)
	headers.EXPECT().SignatureHeader().Return("X-Razorpay-Signature").AnyTimes()

	e := echo.New()
	Setup(e, Handlers{
		Payment: handler.NewPaymentHandler(mocks.NewMockCheckout(ctrl), mocks.NewMockOrderLister(ctrl), zap.NewNop()),
		Webhook: handler.NewWebhookHandler(mocks.NewMockWebhookProcessor(ctrl), headers, zap.NewNop()),
	}, zap.NewNop(), "", "")

	for _, token := range []string{"", "anything"} {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/pay_1/refund", nil)
		if token != "" {
			req.Header.Set("Token", token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
	}
}
