package repository

import (
	"errors"
	"testing"

	"paygate/internal/models"
	"paygate/internal/webhook"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  models.OrderStatus
		target   models.OrderStatus
		want     models.OrderStatus
		rejected bool
	}{
		{"created to authorized", models.OrderStatusCreated, models.OrderStatusAuthorized, models.OrderStatusAuthorized, false},
		{"empty treated as created", "", models.OrderStatusCaptured, models.OrderStatusCaptured, false},
		{"authorized to captured", models.OrderStatusAuthorized, models.OrderStatusCaptured, models.OrderStatusCaptured, false},
		{"captured again is a no-op", models.OrderStatusCaptured, models.OrderStatusCaptured, models.OrderStatusCaptured, false},
		{"authorized after captured", models.OrderStatusCaptured, models.OrderStatusAuthorized, models.OrderStatusCaptured, true},
		{"failed after captured", models.OrderStatusCaptured, models.OrderStatusFailed, models.OrderStatusCaptured, true},
		{"failed after authorized", models.OrderStatusAuthorized, models.OrderStatusFailed, models.OrderStatusFailed, false},
		{"retry after failure", models.OrderStatusFailed, models.OrderStatusCaptured, models.OrderStatusCaptured, false},
		{"created after authorized", models.OrderStatusAuthorized, models.OrderStatusCreated, models.OrderStatusAuthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.target)
			if tt.rejected != errors.Is(err, webhook.ErrTransitionRejected) {
				t.Fatalf("rejected = %v, err = %v", tt.rejected, err)
			}
			if got != tt.want {
				t.Fatalf("NextStatus(%q, %q) = %q, want %q", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestStatusForEvent(t *testing.T) {
	if s, ok := StatusForEvent(models.EventOrderPaid); !ok || s != models.OrderStatusCaptured {
		t.Fatalf("OrderPaid: %q, %v", s, ok)
	}
	if _, ok := StatusForEvent(models.EventRefundCreated); ok {
		t.Fatalf("refund events must not move the order status")
	}
}

func TestRefundedTotal(t *testing.T) {
	amt := func(v int64) *int64 { return &v }

	tests := []struct {
		name    string
		refunds []models.RefundRecord
		floor   int64
		want    int64
	}{
		{"none", nil, 0, 0},
		{"partials add up", []models.RefundRecord{{Amount: amt(1000)}, {Amount: amt(500)}}, 0, 1500},
		{"failed refunds ignored", []models.RefundRecord{{Amount: amt(1000), Status: "failed"}}, 0, 0},
		{"full refund", []models.RefundRecord{{Amount: nil}}, 0, 5000},
		{"cumulative floor wins", []models.RefundRecord{{Amount: amt(1000)}}, 3000, 3000},
		{"capped at amount", []models.RefundRecord{{Amount: amt(4000)}, {Amount: amt(4000)}}, 0, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RefundedTotal(5000, tt.refunds, tt.floor); got != tt.want {
				t.Fatalf("RefundedTotal = %d, want %d", got, tt.want)
			}
		})
	}
}
