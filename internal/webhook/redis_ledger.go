package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/internal/models"
)

// RedisLedger records entries with SETNX so that concurrent instances agree
// on the first writer.
type RedisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLedgerFromClient(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{client: client, prefix: "webhook:ledger", ttl: ttl}
}

// NewRedisLedger connects to Redis and falls back to memory when the server
// cannot be reached. The returned error is informational in that case.
func NewRedisLedger(addr, pass string, db int, ttl time.Duration) (Ledger, error) {
	if addr == "" {
		return NewMemoryLedger(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemoryLedger(ttl), err
	}

	return NewRedisLedgerFromClient(client, ttl), nil
}

func (l *RedisLedger) key(provider models.Provider, key string) string {
	return l.prefix + ":" + string(provider) + ":" + key
}

func (l *RedisLedger) Lookup(ctx context.Context, provider models.Provider, key string) (*Entry, error) {
	raw, err := l.client.Get(ctx, l.key(provider, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (l *RedisLedger) Record(ctx context.Context, entry Entry) (bool, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	// false => already exists
	return l.client.SetNX(ctx, l.key(entry.Provider, entry.Key), raw, l.ttl).Result()
}
