package appointments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/philview/philview/internal/store"
)

// DefaultRedisNonceTTL bounds how long a claimed nonce is remembered in Redis.
const DefaultRedisNonceTTL = 7 * 24 * time.Hour

// Compile-time check that RedisLedger implements store.NonceLedger.
var _ store.NonceLedger = (*RedisLedger)(nil)

// RedisLedger claims nonces with SETNX so that several API replicas share one ledger.
type RedisLedger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisLedger.
type RedisOption func(*RedisLedger)

// WithKeyPrefix sets the key namespace. Defaults to "philview:nonce".
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLedger) { l.prefix = prefix }
}

// WithNonceTTL sets how long claims are kept. Zero keeps them forever.
func WithNonceTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLedger) { l.ttl = ttl }
}

// NewRedisLedger wraps an existing Redis client.
func NewRedisLedger(client redis.Cmdable, opts ...RedisOption) *RedisLedger {
	l := &RedisLedger{client: client, prefix: "philview:nonce", ttl: DefaultRedisNonceTTL}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", addr, err)
	}
	return rdb, nil
}

func (l *RedisLedger) key(consumer, nonce string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, consumer, nonce)
}

func (l *RedisLedger) ClaimNonce(ctx context.Context, consumer, nonce string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(consumer, nonce), time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim nonce failed: %w", err)
	}
	if !ok {
		slog.Debug("RedisLedger.ClaimNonce: nonce already claimed", "consumer", consumer, "nonce", nonce)
	}
	return ok, nil
}

func (l *RedisLedger) ReleaseNonce(ctx context.Context, consumer, nonce string) error {
	if err := l.client.Del(ctx, l.key(consumer, nonce)).Err(); err != nil {
		return fmt.Errorf("redis release nonce failed: %w", err)
	}
	return nil
}
