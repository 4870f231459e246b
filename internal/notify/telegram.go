package notify

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"paygate/internal/models"
	"paygate/internal/payment"
	"paygate/internal/webhook"
)

// Sender is the part of *tele.Bot the reporter uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// NewBot creates a send-only telebot instance. No poller is started.
func NewBot(token string) (*tele.Bot, error) {
	tb, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}
	return tb, nil
}

// TelegramReporter wraps an event handler and posts a payment report to an
// admin chat after captures and refunds were applied.
type TelegramReporter struct {
	next   webhook.EventHandler
	sender Sender
	chat   tele.ChatID
	logger *zap.Logger
}

// NewTelegramReporter returns next unchanged when sender is nil or chatID is
// zero, so reporting can be left unconfigured.
func NewTelegramReporter(next webhook.EventHandler, sender Sender, chatID int64, logger *zap.Logger) webhook.EventHandler {
	if sender == nil || chatID == 0 {
		return next
	}
	return &TelegramReporter{
		next:   next,
		sender: sender,
		chat:   tele.ChatID(chatID),
		logger: logger.Named("telegram"),
	}
}

func (r *TelegramReporter) HandlePaymentEvent(ctx context.Context, u models.PaymentUpdate) error {
	if err := r.next.HandlePaymentEvent(ctx, u); err != nil {
		return err
	}

	text := reportText(u)
	if text == "" {
		return nil
	}
	// A failed report never fails the event.
	if _, err := r.sender.Send(r.chat, text, tele.ModeHTML); err != nil {
		r.logger.Warn("failed to send payment report",
			zap.String("provider", string(u.Provider)),
			zap.String("order_id", u.OrderID),
			zap.Error(err))
	}
	return nil
}

func reportText(u models.PaymentUpdate) string {
	var title string
	switch u.Kind {
	case models.EventPaymentCaptured, models.EventOrderPaid:
		title = "💵 New payment"
	case models.EventRefundCreated:
		title = "↩️ Refund"
	default:
		return ""
	}

	amount := payment.FormatMajor(u.Amount, u.Currency)
	text := fmt.Sprintf("%s\n\nProvider: %s\nOrder: <code>%s</code>\nPayment: <code>%s</code>\nAmount: %s %s",
		title,
		html.EscapeString(string(u.Provider)),
		html.EscapeString(u.OrderID),
		html.EscapeString(u.PaymentID),
		amount,
		html.EscapeString(u.Currency),
	)
	if u.RefundID != "" {
		text += fmt.Sprintf("\nRefund: <code>%s</code>", html.EscapeString(u.RefundID))
	}
	return text
}
