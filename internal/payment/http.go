package payment

import (
	"encoding/json"
	"strings"

	"paygate/internal/models"
	"paygate/internal/pkg/httpclient"
)

// decodeResponse turns a provider call into either a decoded 2xx body or a
// classified *GatewayError. message extracts a readable reason from an
// error body.
func decodeResponse(provider models.Provider, op string, resp *httpclient.Response, err error, out interface{}, message func([]byte) string) error {
	if err != nil {
		return transportError(provider, op, err)
	}
	if !resp.IsSuccess() {
		return statusError(provider, op, resp.StatusCode, message(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return newError(KindProviderUnreachable, provider, op, "unreadable provider response", err)
	}
	return nil
}

// decodeRefundResponse is decodeResponse for the refund path, where a 4xx
// is a refusal of the refund itself.
func decodeRefundResponse(provider models.Provider, resp *httpclient.Response, err error, out interface{}, message func([]byte) string) error {
	if err != nil {
		return transportError(provider, "refund", err)
	}
	if !resp.IsSuccess() {
		msg := message(resp.Body)
		return refundStatusError(provider, resp.StatusCode, msg, looksNotRefundable(msg))
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return newError(KindProviderUnreachable, provider, "refund", "unreadable provider response", err)
	}
	return nil
}

var notRefundableHints = []string{
	"already refunded",
	"fully refunded",
	"not captured",
	"uncaptured",
	"charge_already_refunded",
	"charge_disputed",
	"capture_fully_refunded",
	"refund_not_allowed",
	"refund_time_limit_exceeded",
}

func looksNotRefundable(msg string) bool {
	lower := strings.ToLower(msg)
	for _, hint := range notRefundableHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// RefundStateOf derives the refund summary from captured and refunded totals.
func RefundStateOf(amount, refunded int64) models.RefundState {
	switch {
	case refunded <= 0:
		return models.RefundStateNone
	case amount > 0 && refunded >= amount:
		return models.RefundStateFull
	default:
		return models.RefundStatePartial
	}
}

func requireConfirmationID(provider models.Provider, ids ...string) (string, error) {
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
	}
	return "", newError(KindInvalidRequest, provider, "verify", "payment or order id is required", nil)
}
