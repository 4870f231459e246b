package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"paygate/internal/models"
)

// ErrTransitionRejected is returned by an EventHandler when an event
// contradicts or is older than the persisted state. The event is recorded as
// rejected and acknowledged so the provider stops redelivering it.
var ErrTransitionRejected = errors.New("payment state transition rejected")

// EventHandler applies a verified payment event to business state. It must
// check the current persisted status before transitioning.
type EventHandler interface {
	HandlePaymentEvent(ctx context.Context, update models.PaymentUpdate) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, update models.PaymentUpdate) error

func (f EventHandlerFunc) HandlePaymentEvent(ctx context.Context, update models.PaymentUpdate) error {
	return f(ctx, update)
}

// Dispatcher hands each canonical event to the business handler at most once
// per (provider, kind, event id). The ledger entry is written only after the
// handler returns, so a failed handler leaves the event eligible for
// redelivery.
type Dispatcher struct {
	ledger  Ledger
	handler EventHandler
	logger  *zap.Logger
	locks   keyedMutex
	now     func() time.Time
}

func NewDispatcher(ledger Ledger, handler EventHandler, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		ledger:  ledger,
		handler: handler,
		logger:  logger.Named("dispatcher"),
		now:     time.Now,
	}
}

// Dispatch runs the idempotency check and the business handler for ev.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *models.CanonicalWebhookEvent) (Outcome, error) {
	log := d.logger.With(
		zap.String("provider", string(ev.Provider)),
		zap.String("event_id", ev.EventID),
		zap.String("kind", string(ev.Kind)),
		zap.String("raw_type", ev.RawType),
	)

	if ev.Kind == models.EventUnknown {
		log.Info("ignoring unmapped webhook event")
		return OutcomeIgnored, nil
	}
	if ev.EventID == "" {
		// redelivery cannot fix a body without a resource id
		log.Warn("ignoring webhook event without a resource id")
		return OutcomeIgnored, nil
	}

	key := EventKey(ev)
	unlock := d.locks.lock(string(ev.Provider) + ":" + key)
	defer unlock()

	existing, err := d.ledger.Lookup(ctx, ev.Provider, key)
	if err != nil {
		return "", fmt.Errorf("ledger lookup: %w", err)
	}
	if existing != nil {
		log.Info("duplicate webhook delivery",
			zap.String("first_outcome", string(existing.Outcome)),
			zap.Time("first_seen_at", existing.FirstSeenAt))
		return OutcomeDuplicate, nil
	}

	outcome := OutcomeApplied
	if err := d.handler.HandlePaymentEvent(ctx, models.UpdateFromEvent(ev)); err != nil {
		if !errors.Is(err, ErrTransitionRejected) {
			log.Error("payment event handler failed", zap.Error(err))
			return "", fmt.Errorf("handle payment event: %w", err)
		}
		log.Warn("payment event rejected", zap.Error(err))
		outcome = OutcomeRejected
	}

	recorded, err := d.ledger.Record(ctx, Entry{
		Provider:    ev.Provider,
		Key:         key,
		EventID:     ev.EventID,
		Kind:        ev.Kind,
		Outcome:     outcome,
		FirstSeenAt: d.now().UTC(),
	})
	if err != nil {
		log.Error("failed to record webhook event", zap.Error(err))
		return "", fmt.Errorf("ledger record: %w", err)
	}
	if !recorded {
		// Another instance finished the same event first.
		log.Info("webhook event recorded concurrently")
		return OutcomeDuplicate, nil
	}

	log.Info("webhook event dispatched", zap.String("outcome", string(outcome)))
	return outcome, nil
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
