package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"paygate/internal/handler"
	"paygate/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Payment *handler.PaymentHandler
	Webhook *handler.WebhookHandler
}

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, h Handlers, logger *zap.Logger, apiKey, apiKeyHash string) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORS())

	// API group with token auth
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(apiKey, apiKeyHash))

	apiGroup.GET("/payments", h.Payment.List)
	apiGroup.POST("/payments/orders", h.Payment.CreateOrder)
	apiGroup.POST("/payments/verify", h.Payment.Verify)
	apiGroup.POST("/payments/:id/refund", h.Payment.Refund)
	apiGroup.GET("/payments/:id", h.Payment.Status)

	// Provider webhooks authenticate by signature, not by token.
	e.POST("/webhooks/payment", h.Webhook.Handle)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
