package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paygate/internal/models"
	"paygate/internal/payment"
	"paygate/internal/webhook"
)

// PaymentRepository handles provider order and refund persistence.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ webhook.EventHandler = (*PaymentRepository)(nil)

// Create inserts a new provider order row.
func (r *PaymentRepository) Create(ctx context.Context, rec *models.PaymentRecord) error {
	if rec.Status == "" {
		rec.Status = string(models.OrderStatusCreated)
	}
	if rec.RefundState == "" {
		rec.RefundState = string(models.RefundStateNone)
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// FindAll returns orders with pagination, optionally filtered by status.
func (r *PaymentRepository) FindAll(ctx context.Context, limit, page int, status string) ([]models.PaymentRecord, int64, error) {
	var records []models.PaymentRecord
	var total int64

	db := r.db.WithContext(ctx).Model(&models.PaymentRecord{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindByReference returns the latest order whose provider order id or
// payment id equals id.
func (r *PaymentRepository) FindByReference(ctx context.Context, provider models.Provider, id string) (*models.PaymentRecord, error) {
	return findRecord(r.db.WithContext(ctx), false, provider, id)
}

// FindStale returns open orders not touched or polled since before, least
// recently polled first.
func (r *PaymentRepository) FindStale(ctx context.Context, before time.Time, limit int) ([]models.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{
			string(models.OrderStatusCreated),
			string(models.OrderStatusAuthorized),
		}, before).
		Where("last_polled_at IS NULL OR last_polled_at < ?", before).
		Order("last_polled_at ASC, id ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// MarkPolled stamps last_polled_at without touching updated_at.
func (r *PaymentRepository) MarkPolled(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id IN ?", ids).
		UpdateColumn("last_polled_at", at).Error
}

// ApplyStatus moves an order to target if the transition rule allows it.
func (r *PaymentRepository) ApplyStatus(ctx context.Context, provider models.Provider, orderID, paymentID string, target models.OrderStatus, providerStatus string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findRecord(tx, true, provider, orderID, paymentID)
		if err != nil {
			return unknownOrder(err, orderID, paymentID)
		}
		return applyStatus(tx, rec, target, paymentID, providerStatus)
	})
}

// SaveRefund stores a refund and refreshes the refunded total of its payment.
// Saving the same refund id twice is a no-op.
func (r *PaymentRepository) SaveRefund(ctx context.Context, refund *models.RefundRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertRefund(tx, refund); err != nil {
			return err
		}
		rec, err := findRecord(tx, true, models.Provider(refund.Provider), refund.SourcePaymentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return refreshRefunds(tx, rec, rec.AmountRefunded)
	})
}

// HandlePaymentEvent applies a verified webhook update. Events for unknown
// orders and stale or contradicting transitions return
// webhook.ErrTransitionRejected.
func (r *PaymentRepository) HandlePaymentEvent(ctx context.Context, u models.PaymentUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findRecord(tx, true, u.Provider, u.OrderID, u.PaymentID)
		if err != nil {
			return unknownOrder(err, u.OrderID, u.PaymentID)
		}

		switch u.Kind {
		case models.EventRefundCreated:
			if rec.Status != string(models.OrderStatusCaptured) {
				return fmt.Errorf("%w: refund on %s order %s", webhook.ErrTransitionRejected, rec.Status, rec.ProviderOrderID)
			}
			floor := rec.AmountRefunded
			if u.RefundID == "" {
				// Cumulative refunded amount (Stripe charge.refunded).
				floor = max(floor, u.Amount)
			} else if err := insertRefund(tx, refundFromUpdate(u, models.RefundStatusCompleted)); err != nil {
				return err
			}
			return refreshRefunds(tx, rec, floor)

		case models.EventRefundFailed:
			if u.RefundID != "" {
				err := tx.Model(&models.RefundRecord{}).
					Where("refund_id = ?", u.RefundID).
					Update("status", string(models.RefundStatusFailed)).Error
				if err != nil {
					return err
				}
			}
			return refreshRefunds(tx, rec, 0)
		}

		target, ok := StatusForEvent(u.Kind)
		if !ok {
			return nil
		}
		return applyStatus(tx, rec, target, u.PaymentID, u.ProviderStatus)
	})
}

func findRecord(db *gorm.DB, lock bool, provider models.Provider, ids ...string) (*models.PaymentRecord, error) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		q := db
		if lock {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var rec models.PaymentRecord
		err := q.Where("provider = ? AND (provider_order_id = ? OR payment_id = ?)", string(provider), id, id).
			Order("id DESC").
			First(&rec).Error
		if err == nil {
			return &rec, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func unknownOrder(err error, orderID, paymentID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: no order for %q/%q", webhook.ErrTransitionRejected, orderID, paymentID)
	}
	return err
}

func applyStatus(tx *gorm.DB, rec *models.PaymentRecord, target models.OrderStatus, paymentID, providerStatus string) error {
	next, err := NextStatus(models.OrderStatus(rec.Status), target)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": string(next)}
	if providerStatus != "" {
		updates["provider_status"] = providerStatus
	}
	// Order-level events carry the order id as payment id; keep a known payment id.
	if paymentID != "" && (rec.PaymentID == "" || paymentID != rec.ProviderOrderID) {
		updates["payment_id"] = paymentID
	}
	return tx.Model(rec).Updates(updates).Error
}

func insertRefund(tx *gorm.DB, refund *models.RefundRecord) error {
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now()
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "refund_id"}},
		DoNothing: true,
	}).Create(refund).Error
}

func refundFromUpdate(u models.PaymentUpdate, status models.RefundStatus) *models.RefundRecord {
	rec := &models.RefundRecord{
		Provider:        string(u.Provider),
		RefundID:        u.RefundID,
		SourcePaymentID: u.PaymentID,
		Currency:        u.Currency,
		Status:          string(status),
	}
	if u.Amount > 0 {
		amount := u.Amount
		rec.Amount = &amount
	}
	return rec
}

func refreshRefunds(tx *gorm.DB, rec *models.PaymentRecord, floor int64) error {
	sources := []string{rec.ProviderOrderID}
	if rec.PaymentID != "" && rec.PaymentID != rec.ProviderOrderID {
		sources = append(sources, rec.PaymentID)
	}

	var refunds []models.RefundRecord
	err := tx.Where("provider = ? AND source_payment_id IN ?", rec.Provider, sources).Find(&refunds).Error
	if err != nil {
		return err
	}

	total := RefundedTotal(rec.Amount, refunds, floor)
	return tx.Model(rec).Updates(map[string]interface{}{
		"amount_refunded": total,
		"refund_state":    string(payment.RefundStateOf(rec.Amount, total)),
	}).Error
}
