package webhook

import (
	"context"
	"sync"
	"time"

	"paygate/internal/models"
)

// Outcome is the recorded result of handling one webhook event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	// OutcomeIgnored is returned for event kinds with no business meaning.
	// Nothing is recorded for them.
	OutcomeIgnored Outcome = "ignored"
)

// Entry is one idempotency ledger row. Entries are written once and never
// updated.
type Entry struct {
	Provider    models.Provider  `json:"provider"`
	Key         string           `json:"key"`
	EventID     string           `json:"event_id"`
	Kind        models.EventKind `json:"kind"`
	Outcome     Outcome          `json:"outcome"`
	FirstSeenAt time.Time        `json:"first_seen_at"`
}

// Ledger stores which (provider, key) pairs were already handled.
type Ledger interface {
	// Lookup returns the entry for key, or nil when the key was never recorded.
	Lookup(ctx context.Context, provider models.Provider, key string) (*Entry, error)

	// Record writes entry unless one already exists for the same key.
	// It reports false when another writer got there first.
	Record(ctx context.Context, entry Entry) (bool, error)
}

// EventKey is the ledger key for an event. The kind is part of the key
// because providers reuse the resource id across lifecycle events
// (authorized then captured for the same payment).
func EventKey(ev *models.CanonicalWebhookEvent) string {
	return string(ev.Kind) + ":" + ev.EventID
}

// MemoryLedger keeps entries in process memory with a TTL.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	nextGC  time.Time
}

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

// NewMemoryLedger creates an in-memory ledger. A non-positive ttl keeps
// entries for 24 hours.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryLedger{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		nextGC:  time.Now().Add(ttl),
	}
}

func memoryKey(provider models.Provider, key string) string {
	return string(provider) + ":" + key
}

func (l *MemoryLedger) Lookup(_ context.Context, provider models.Provider, key string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[memoryKey(provider, key)]
	if !ok || !e.expires.After(time.Now()) {
		return nil, nil
	}
	entry := e.entry
	return &entry, nil
}

func (l *MemoryLedger) Record(_ context.Context, entry Entry) (bool, error) {
	now := time.Now()
	k := memoryKey(entry.Provider, entry.Key)

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[k]; ok && e.expires.After(now) {
		return false, nil
	}
	l.entries[k] = memoryEntry{entry: entry, expires: now.Add(l.ttl)}

	if now.After(l.nextGC) {
		for key, e := range l.entries {
			if e.expires.Before(now) {
				delete(l.entries, key)
			}
		}
		l.nextGC = now.Add(l.ttl)
	}
	return true, nil
}
