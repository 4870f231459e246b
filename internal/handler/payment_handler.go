package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"paygate/internal/models"
	"paygate/internal/payment"
	"paygate/internal/service"
)

//go:generate mockgen -destination=mocks/mock_handler.go -package=mocks paygate/internal/handler Checkout,OrderLister,WebhookProcessor,SignatureSource

// Checkout is the payment flow the API exposes.
type Checkout interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, c models.PaymentConfirmation) (*models.PaymentVerificationResult, error)
	RefundPayment(ctx context.Context, paymentID string, amount *float64) (*models.RefundRecord, error)
	GetStatus(ctx context.Context, id string) (*models.PaymentVerificationResult, error)
}

// OrderLister pages through persisted orders.
type OrderLister interface {
	FindAll(ctx context.Context, limit, page int, status string) ([]models.PaymentRecord, int64, error)
}

// PaymentHandler serves the /api/payments endpoints.
type PaymentHandler struct {
	checkout Checkout
	orders   OrderLister
	logger   *zap.Logger
}

func NewPaymentHandler(checkout Checkout, orders OrderLister, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, orders: orders, logger: logger.Named("payment_api")}
}

// CreateOrder handles POST /api/payments/orders.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req service.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	order, err := h.checkout.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "create order", err)
	}
	return successResponse(c, "Order created", order)
}

// Verify handles POST /api/payments/verify.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req models.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.checkout.VerifyPayment(c.Request().Context(), req.Confirmation())
	if err != nil {
		return h.fail(c, "verify payment", err)
	}
	return successResponse(c, "Payment verified", result)
}

// Refund handles POST /api/payments/:id/refund.
func (h *PaymentHandler) Refund(c echo.Context) error {
	var req models.RefundRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return errorResponse(c, http.StatusBadRequest, "Invalid request body")
		}
	}

	refund, err := h.checkout.RefundPayment(c.Request().Context(), c.Param("id"), req.Amount)
	if err != nil {
		return h.fail(c, "refund payment", err)
	}
	return successResponse(c, "Refund created", refund)
}

// Status handles GET /api/payments/:id.
func (h *PaymentHandler) Status(c echo.Context) error {
	result, err := h.checkout.GetStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "get status", err)
	}
	return successResponse(c, "", result)
}

// List handles GET /api/payments.
func (h *PaymentHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if page <= 0 {
		page = 1
	}

	records, total, err := h.orders.FindAll(c.Request().Context(), limit, page, c.QueryParam("status"))
	if err != nil {
		return h.fail(c, "list", err)
	}
	return successResponse(c, "", paginatedResponse(records, total, page, limit))
}

func (h *PaymentHandler) fail(c echo.Context, op string, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		id := correlationID(c)
		h.logger.Error("payment request failed",
			zap.String("op", op),
			zap.String("correlation_id", id),
			zap.Error(err))
		return internalErrorResponse(c, code, id)
	}
	if payment.KindOf(err) == payment.KindSignatureMismatch {
		return errorResponse(c, code, "invalid signature")
	}
	return errorResponse(c, code, err.Error())
}
