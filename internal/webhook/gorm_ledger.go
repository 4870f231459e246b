package webhook

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paygate/internal/models"
)

// GormLedger stores entries in the webhook_ledger table. The unique index on
// (provider, event_key) decides the first writer.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Lookup(ctx context.Context, provider models.Provider, key string) (*Entry, error) {
	var row models.WebhookLedgerEntry
	err := l.db.WithContext(ctx).
		Where("provider = ? AND event_key = ?", string(provider), key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Entry{
		Provider:    models.Provider(row.Provider),
		Key:         row.EventKey,
		EventID:     row.EventID,
		Kind:        models.EventKind(row.Kind),
		Outcome:     Outcome(row.Outcome),
		FirstSeenAt: row.FirstSeenAt,
	}, nil
}

func (l *GormLedger) Record(ctx context.Context, entry Entry) (bool, error) {
	row := models.WebhookLedgerEntry{
		Provider:    string(entry.Provider),
		EventKey:    entry.Key,
		EventID:     entry.EventID,
		Kind:        string(entry.Kind),
		Outcome:     string(entry.Outcome),
		FirstSeenAt: entry.FirstSeenAt,
	}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
