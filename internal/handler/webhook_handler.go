package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"paygate/internal/payment"
	"paygate/internal/webhook"
)

const maxWebhookBody = 1 << 20

// WebhookProcessor verifies and dispatches one delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte, signature string) (*webhook.Result, error)
}

// SignatureSource names the header carrying the webhook signature.
type SignatureSource interface {
	SignatureHeader() string
}

// WebhookHandler receives provider webhook deliveries.
type WebhookHandler struct {
	processor WebhookProcessor
	headers   SignatureSource
	logger    *zap.Logger
}

func NewWebhookHandler(processor WebhookProcessor, headers SignatureSource, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, headers: headers, logger: logger.Named("webhook")}
}

// Handle serves POST /webhooks/payment. The raw body is read before any
// decoding since signatures cover the exact bytes.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return h.internalError(c, err)
	}

	signature := c.Request().Header.Get(h.headers.SignatureHeader())
	res, err := h.processor.Process(c.Request().Context(), body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureMismatch) {
			h.logger.Warn("webhook signature rejected", zap.String("ip", c.RealIP()))
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signature"})
		}
		return h.internalError(c, err)
	}

	h.logger.Info("webhook processed",
		zap.String("provider", string(res.Event.Provider)),
		zap.String("event_id", res.Event.EventID),
		zap.String("kind", string(res.Event.Kind)),
		zap.String("outcome", string(res.Outcome)))
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) internalError(c echo.Context, err error) error {
	id := correlationID(c)
	h.logger.Error("webhook processing failed", zap.String("correlation_id", id), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error":          "internal error",
		"correlation_id": id,
	})
}
