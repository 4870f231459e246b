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
	"paygate/internal/webhook"
)

func serveWebhook(t *testing.T, proc handler.WebhookProcessor, body, sig string) *httptest.ResponseRecorder {
	t.Helper()
	ctrl := gomock.NewController(t)
	headers := mocks.NewMockSignatureSource(ctrl)
	headers.EXPECT().SignatureHeader().Return("X-Razorpay-Signature").AnyTimes()

	h := handler.NewWebhookHandler(proc, headers, zap.NewNop())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Razorpay-Signature", sig)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Handle(c); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return rec
}

func TestWebhookHandler_Handle(t *testing.T) {
	body := `{"event":"payment.captured"}`

	t.Run("applied", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		proc := mocks.NewMockWebhookProcessor(ctrl)
		proc.EXPECT().Process(gomock.Any(), []byte(body), "good").Return(&webhook.Result{
			Event:   &models.CanonicalWebhookEvent{Provider: models.ProviderRazorpay, EventID: "pay_1", Kind: models.EventPaymentCaptured},
			Outcome: webhook.OutcomeApplied,
		}, nil)

		rec := serveWebhook(t, proc, body, "good")
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("duplicate is acknowledged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		proc := mocks.NewMockWebhookProcessor(ctrl)
		proc.EXPECT().Process(gomock.Any(), gomock.Any(), gomock.Any()).Return(&webhook.Result{
			Event:   &models.CanonicalWebhookEvent{Provider: models.ProviderRazorpay, EventID: "pay_1"},
			Outcome: webhook.OutcomeDuplicate,
		}, nil)

		if rec := serveWebhook(t, proc, body, "good"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		proc := mocks.NewMockWebhookProcessor(ctrl)
		proc.EXPECT().Process(gomock.Any(), gomock.Any(), "bad").Return(nil, payment.ErrSignatureMismatch)

		rec := serveWebhook(t, proc, body, "bad")
		if rec.Code != http.StatusBadRequest || strings.TrimSpace(rec.Body.String()) != `{"error":"invalid signature"}` {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("internal error carries a correlation id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		proc := mocks.NewMockWebhookProcessor(ctrl)
		proc.EXPECT().Process(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("ledger unavailable"))

		rec := serveWebhook(t, proc, body, "good")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp["correlation_id"] == "" || resp["correlation_id"] != rec.Header().Get(echo.HeaderXRequestID) {
			t.Fatalf("correlation id mismatch: %v / %q", resp, rec.Header().Get(echo.HeaderXRequestID))
		}
		if strings.Contains(rec.Body.String(), "ledger") {
			t.Fatalf("internal detail leaked: %s", rec.Body.String())
		}
	})
}
