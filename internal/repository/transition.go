package repository

import (
	"fmt"

	"paygate/internal/models"
	"paygate/internal/webhook"
)

var statusRank = map[models.OrderStatus]int{
	models.OrderStatusCreated:    0,
	models.OrderStatusAuthorized: 1,
	models.OrderStatusCaptured:   2,
}

var eventTarget = map[models.EventKind]models.OrderStatus{
	models.EventPaymentAuthorized: models.OrderStatusAuthorized,
	models.EventPaymentCaptured:   models.OrderStatusCaptured,
	models.EventOrderPaid:         models.OrderStatusCaptured,
	models.EventPaymentFailed:     models.OrderStatusFailed,
}

// NextStatus returns the status an order moves to when target is observed.
// Captured is terminal. Failed may be followed by a later successful attempt
// on the same order, but never overwrites a capture.
func NextStatus(current, target models.OrderStatus) (models.OrderStatus, error) {
	if current == "" {
		current = models.OrderStatusCreated
	}
	if current == target {
		return current, nil
	}

	switch {
	case current == models.OrderStatusCaptured:
		return current, fmt.Errorf("%w: %s after %s", webhook.ErrTransitionRejected, target, current)
	case target == models.OrderStatusFailed:
		return target, nil
	case current == models.OrderStatusFailed:
		return target, nil
	}

	to, ok := statusRank[target]
	if !ok {
		return current, fmt.Errorf("%w: unknown status %q", webhook.ErrTransitionRejected, target)
	}
	if to < statusRank[current] {
		return current, fmt.Errorf("%w: %s after %s", webhook.ErrTransitionRejected, target, current)
	}
	return target, nil
}

// StatusForEvent maps an event kind onto the order status it implies.
// Refund kinds report false since they leave the order status alone.
func StatusForEvent(kind models.EventKind) (models.OrderStatus, bool) {
	s, ok := eventTarget[kind]
	return s, ok
}

// RefundedTotal sums the non-failed refunds of a payment. A refund without an
// amount is a full refund. floor is a cumulative total reported by the
// provider, which wins when it is larger. The result never exceeds amount.
func RefundedTotal(amount int64, refunds []models.RefundRecord, floor int64) int64 {
	var total int64
	for _, r := range refunds {
		if r.Status == string(models.RefundStatusFailed) {
			continue
		}
		if r.Amount == nil {
			total = amount
			break
		}
		total += *r.Amount
	}
	if floor > total {
		total = floor
	}
	if amount > 0 && total > amount {
		total = amount
	}
	return total
}
