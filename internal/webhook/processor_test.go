package webhook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"paygate/internal/models"
	"paygate/internal/payment"
	"paygate/internal/webhook"
	"paygate/internal/webhook/mocks"
)

func TestProcessor_SignatureMismatchNeverDispatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	verifier := mocks.NewMockVerifier(ctrl)
	verifier.EXPECT().HandleWebhook(gomock.Any(), []byte(`{}`), "bad").Return(nil, payment.ErrSignatureMismatch)
	handler := mocks.NewMockEventHandler(ctrl)
	ledger := mocks.NewMockLedger(ctrl)

	p := webhook.NewProcessor(verifier, webhook.NewDispatcher(ledger, handler, zap.NewNop()))
	if _, err := p.Process(context.Background(), []byte(`{}`), "bad"); !errors.Is(err, payment.ErrSignatureMismatch) {
		t.Fatalf("expected SignatureMismatch, got %v", err)
	}
}

func TestProcessor_RazorpayCapturedRedelivery(t *testing.T) {
	gw, err := payment.NewCardNetworkGateway(payment.RazorpayConfig{
		KeyID:         "rzp_key",
		KeySecret:     "rzp_secret",
		WebhookSecret: "rzp_webhook",
		BaseURL:       "http://127.0.0.1:0",
	})
	if err != nil {
		t.Fatalf("NewCardNetworkGateway: %v", err)
	}

	var updates []models.PaymentUpdate
	handler := webhook.EventHandlerFunc(func(_ context.Context, u models.PaymentUpdate) error {
		updates = append(updates, u)
		return nil
	})
	p := webhook.NewProcessor(gw, webhook.NewDispatcher(webhook.NewMemoryLedger(time.Hour), handler, zap.NewNop()))

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"ord_abc","amount":25000}}}}`)
	sig := payment.SignHMAC("rzp_webhook", body)
	ctx := context.Background()

	res, err := p.Process(ctx, body, sig)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Outcome != webhook.OutcomeApplied || res.Event.Kind != models.EventPaymentCaptured || res.Event.EventID != "pay_1" {
		t.Fatalf("unexpected result: %+v / %+v", res, res.Event)
	}

	res, err = p.Process(ctx, body, sig)
	if err != nil || res.Outcome != webhook.OutcomeDuplicate {
		t.Fatalf("expected duplicate on redelivery, got %+v, %v", res, err)
	}

	if len(updates) != 1 || updates[0].OrderID != "ord_abc" || updates[0].Amount != 25000 {
		t.Fatalf("unexpected handler calls: %+v", updates)
	}
}
