package models

// APIResponse is the standard envelope of the /api endpoints.
type APIResponse struct {
	Status        bool        `json:"status"`
	Msg           string      `json:"msg"`
	Obj           interface{} `json:"obj"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// PaginatedResponse wraps list results with pagination info.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// RefundRequest is the body of POST /api/payments/:id/refund. A missing
// amount refunds the full captured amount.
type RefundRequest struct {
	Amount *float64 `json:"amount"`
}

// VerifyRequest is the body of POST /api/payments/verify. Both the generic
// and the Razorpay checkout field names are accepted.
type VerifyRequest struct {
	OrderID           string `json:"order_id"`
	PaymentID         string `json:"payment_id"`
	Signature         string `json:"signature"`
	PayerID           string `json:"payer_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// Confirmation folds the accepted field names into a PaymentConfirmation.
func (r VerifyRequest) Confirmation() PaymentConfirmation {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return PaymentConfirmation{
		OrderID:   pick(r.OrderID, r.RazorpayOrderID),
		PaymentID: pick(r.PaymentID, r.RazorpayPaymentID),
		Signature: pick(r.Signature, r.RazorpaySignature),
		PayerID:   r.PayerID,
	}
}
