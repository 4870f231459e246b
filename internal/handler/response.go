package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"paygate/internal/models"
	"paygate/internal/payment"
	"paygate/internal/service"
)

func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

// internalErrorResponse hides err behind a generic message and a correlation
// id that is also written to the log.
func internalErrorResponse(c echo.Context, code int, id string) error {
	return c.JSON(code, models.APIResponse{
		Status:        false,
		Msg:           publicMessage(code),
		CorrelationID: id,
	})
}

func publicMessage(code int) string {
	switch code {
	case http.StatusBadGateway:
		return "payment provider unavailable"
	case http.StatusGatewayTimeout:
		return "payment provider timed out"
	case http.StatusServiceUnavailable:
		return "payment gateway not available"
	}
	return "internal error"
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
	}
}

// statusFor maps a gateway or service error onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, service.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	switch payment.KindOf(err) {
	case payment.KindInvalidRequest, payment.KindSignatureMismatch:
		return http.StatusBadRequest
	case payment.KindNotFound:
		return http.StatusNotFound
	case payment.KindPaymentNotSucceeded, payment.KindPaymentNotRefundable,
		payment.KindRefundRejected, payment.KindProviderRejected:
		return http.StatusUnprocessableEntity
	case payment.KindProviderUnreachable:
		return http.StatusBadGateway
	case payment.KindNetworkTimeout:
		return http.StatusGatewayTimeout
	case payment.KindNotInitialized, payment.KindInvalidConfig:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// correlationID returns the request id set by the RequestID middleware, or
// a fresh one written to the response.
func correlationID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}
