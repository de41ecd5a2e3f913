package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
)

// PaymentCache remembers until when an (address, service) pair is paid for.
type PaymentCache interface {
	MarkPaid(ctx context.Context, address, service string, until time.Time) error
	PaidUntil(ctx context.Context, address, service string) (time.Time, bool, error)
}

func GetRedisConnection(cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, using in-memory payment cache")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Error("connecting to redis", zap.Error(err))
		return nil, err
	}
	return client, nil
}

func NewPaymentCache(client *redis.Client) PaymentCache {
	if client == nil {
		return NewMemoryPaymentCache(time.Now)
	}
	return &redisPaymentCache{client: client}
}

func paymentCacheKey(address, service string) string {
	return fmt.Sprintf("payment:%s:%s", strings.ToLower(address), service)
}

type redisPaymentCache struct {
	client *redis.Client
}

func (r *redisPaymentCache) MarkPaid(ctx context.Context, address, service string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, paymentCacheKey(address, service), until.UnixMilli(), ttl).Err()
}

func (r *redisPaymentCache) PaidUntil(ctx context.Context, address, service string) (time.Time, bool, error) {
	value, err := r.client.Get(ctx, paymentCacheKey(address, service)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

type memoryPaymentCache struct {
	mu    sync.Mutex
	now   func() time.Time
	until map[string]time.Time
}

func NewMemoryPaymentCache(now func() time.Time) PaymentCache {
	return &memoryPaymentCache{now: now, until: map[string]time.Time{}}
}

func (m *memoryPaymentCache) MarkPaid(_ context.Context, address, service string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until[paymentCacheKey(address, service)] = until
	return nil
}

func (m *memoryPaymentCache) PaidUntil(_ context.Context, address, service string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := paymentCacheKey(address, service)
	until, ok := m.until[key]
	if !ok {
		return time.Time{}, false, nil
	}
	if !m.now().Before(until) {
		delete(m.until, key)
		return time.Time{}, false, nil
	}
	return until, true, nil
}
