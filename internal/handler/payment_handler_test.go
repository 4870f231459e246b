package handler_test

import (
	"encoding/json"
	"errors"
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
	"paygate/internal/service"
)

func newPaymentHandler(t *testing.T) (*handler.PaymentHandler, *mocks.MockCheckout, *mocks.MockOrderLister) {
	ctrl := gomock.NewController(t)
	checkout := mocks.NewMockCheckout(ctrl)
	orders := mocks.NewMockOrderLister(ctrl)
	return handler.NewPaymentHandler(checkout, orders, zap.NewNop()), checkout, orders
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestPaymentHandler_CreateOrder(t *testing.T) {
	h, checkout, _ := newPaymentHandler(t)
	checkout.EXPECT().
		CreateOrder(gomock.Any(), service.CreateOrderRequest{Amount: 250, Currency: "INR", Metadata: map[string]string{"order_id": "A-1"}}).
		Return(&models.PaymentOrder{Provider: models.ProviderRazorpay, ProviderOrderID: "order_abc", Amount: 25000}, nil)

	c, rec := newContext(http.MethodPost, "/api/payments/orders", `{"amount":250,"currency":"INR","metadata":{"order_id":"A-1"}}`)
	if err := h.CreateOrder(c); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if rec.Code != http.StatusOK || !decodeResponse(t, rec).Status {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"provider_order_id":"order_abc"`) {
		t.Fatalf("missing order in %s", rec.Body.String())
	}
}

func TestPaymentHandler_Verify(t *testing.T) {
	t.Run("razorpay field names", func(t *testing.T) {
		h, checkout, _ := newPaymentHandler(t)
		checkout.EXPECT().
			VerifyPayment(gomock.Any(), models.PaymentConfirmation{OrderID: "order_abc", PaymentID: "pay_1", Signature: "sig"}).
			Return(&models.PaymentVerificationResult{Valid: true, Status: models.OrderStatusCaptured}, nil)

		c, rec := newContext(http.MethodPost, "/api/payments/verify",
			`{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`)
		if err := h.Verify(c); err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}
	})

	t.Run("signature mismatch", func(t *testing.T) {
		h, checkout, _ := newPaymentHandler(t)
		checkout.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(nil, payment.ErrSignatureMismatch)

		c, rec := newContext(http.MethodPost, "/api/payments/verify", `{"order_id":"o","payment_id":"p","signature":"x"}`)
		if err := h.Verify(c); err != nil {
			t.Fatalf("Verify: %v", err)
		}
		resp := decodeResponse(t, rec)
		if rec.Code != http.StatusBadRequest || resp.Status || resp.Msg != "invalid signature" {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestPaymentHandler_ServerErrorsAreGeneric(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{
			name: "provider unreachable",
			err:  &payment.GatewayError{Kind: payment.KindProviderUnreachable, Provider: models.ProviderStripe, Op: "status", Err: errors.New("dial tcp 10.0.0.7:443: connection refused")},
			code: http.StatusBadGateway,
		},
		{
			name: "unclassified",
			err:  errors.New("sql: connection is already closed"),
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, checkout, _ := newPaymentHandler(t)
			checkout.EXPECT().GetStatus(gomock.Any(), "pi_1").Return(nil, tt.err)

			c, rec := newContext(http.MethodGet, "/api/payments/pi_1", "")
			c.SetParamNames("id")
			c.SetParamValues("pi_1")
			if err := h.Status(c); err != nil {
				t.Fatalf("Status: %v", err)
			}
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if strings.Contains(rec.Body.String(), "10.0.0.7") || strings.Contains(rec.Body.String(), "sql:") {
				t.Fatalf("internal detail leaked: %s", rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if resp.Status || resp.CorrelationID == "" || resp.CorrelationID != rec.Header().Get(echo.HeaderXRequestID) {
				t.Fatalf("missing correlation id: %s / %q", rec.Body.String(), rec.Header().Get(echo.HeaderXRequestID))
			}
		})
	}
}

func TestPaymentHandler_Refund(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		amount *float64
		err    error
		code   int
	}{
		{name: "full refund", body: "", code: http.StatusOK},
		{name: "partial refund", body: `{"amount":5}`, amount: func() *float64 { v := 5.0; return &v }(), code: http.StatusOK},
		{name: "not refundable", body: "", err: payment.ErrPaymentNotRefundable, code: http.StatusUnprocessableEntity},
		{name: "provider down", body: "", err: payment.ErrProviderUnreachable, code: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, checkout, _ := newPaymentHandler(t)
			call := checkout.EXPECT().RefundPayment(gomock.Any(), "pay_1", tt.amount)
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Return(&models.RefundRecord{RefundID: "rfnd_1", Status: "pending"}, nil)
			}

			c, rec := newContext(http.MethodPost, "/api/payments/pay_1/refund", tt.body)
			c.SetParamNames("id")
			c.SetParamValues("pay_1")
			if err := h.Refund(c); err != nil {
				t.Fatalf("Refund: %v", err)
			}
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d (%s)", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPaymentHandler_Status(t *testing.T) {
	h, checkout, _ := newPaymentHandler(t)
	checkout.EXPECT().GetStatus(gomock.Any(), "missing").Return(nil, payment.ErrNotFound)

	c, rec := newContext(http.MethodGet, "/api/payments/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPaymentHandler_List(t *testing.T) {
	h, _, orders := newPaymentHandler(t)
	orders.EXPECT().FindAll(gomock.Any(), 50, 2, "captured").Return([]models.PaymentRecord{{ProviderOrderID: "order_abc"}}, int64(51), nil)

	c, rec := newContext(http.MethodGet, "/api/payments?page=2&status=captured", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total_pages":2`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
