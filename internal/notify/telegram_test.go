package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"paygate/internal/models"
	"paygate/internal/webhook"
)

type recordingSender struct {
	to   []tele.Recipient
	sent []string
	err  error
}

func (s *recordingSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	s.to = append(s.to, to)
	s.sent = append(s.sent, what.(string))
	return &tele.Message{}, s.err
}

func TestTelegramReporter(t *testing.T) {
	ctx := context.Background()
	ok := webhook.EventHandlerFunc(func(context.Context, models.PaymentUpdate) error { return nil })

	t.Run("reports captures", func(t *testing.T) {
		sender := &recordingSender{}
		h := NewTelegramReporter(ok, sender, -1001, zap.NewNop())

		err := h.HandlePaymentEvent(ctx, models.PaymentUpdate{
			Provider:  models.ProviderRazorpay,
			OrderID:   "order_abc",
			PaymentID: "pay_1",
			Kind:      models.EventPaymentCaptured,
			Amount:    25000,
			Currency:  "INR",
		})
		if err != nil {
			t.Fatalf("HandlePaymentEvent: %v", err)
		}
		if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "250.00 INR") || !strings.Contains(sender.sent[0], "order_abc") {
			t.Fatalf("unexpected reports %q", sender.sent)
		}
		if sender.to[0].Recipient() != "-1001" {
			t.Fatalf("unexpected recipient %q", sender.to[0].Recipient())
		}
	})

	t.Run("skips other kinds", func(t *testing.T) {
		sender := &recordingSender{}
		h := NewTelegramReporter(ok, sender, 7, zap.NewNop())
		if err := h.HandlePaymentEvent(ctx, models.PaymentUpdate{Kind: models.EventPaymentAuthorized}); err != nil {
			t.Fatalf("HandlePaymentEvent: %v", err)
		}
		if len(sender.sent) != 0 {
			t.Fatalf("expected no report, got %q", sender.sent)
		}
	})

	t.Run("handler failure is not reported", func(t *testing.T) {
		sender := &recordingSender{}
		failing := webhook.EventHandlerFunc(func(context.Context, models.PaymentUpdate) error {
			return webhook.ErrTransitionRejected
		})
		h := NewTelegramReporter(failing, sender, 7, zap.NewNop())
		err := h.HandlePaymentEvent(ctx, models.PaymentUpdate{Kind: models.EventPaymentCaptured})
		if !errors.Is(err, webhook.ErrTransitionRejected) || len(sender.sent) != 0 {
			t.Fatalf("err=%v sent=%q", err, sender.sent)
		}
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("telegram down")}
		h := NewTelegramReporter(ok, sender, 7, zap.NewNop())
		if err := h.HandlePaymentEvent(ctx, models.PaymentUpdate{Kind: models.EventRefundCreated, RefundID: "rfnd_1"}); err != nil {
			t.Fatalf("HandlePaymentEvent: %v", err)
		}
	})

	t.Run("unconfigured returns the handler unchanged", func(t *testing.T) {
		if _, wrapped := NewTelegramReporter(ok, nil, 7, zap.NewNop()).(*TelegramReporter); wrapped {
			t.Fatalf("expected no wrapping without a sender")
		}
	})
}
