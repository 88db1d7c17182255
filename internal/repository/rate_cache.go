package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// CachedRate is what the converter stores per currency pair.
type CachedRate struct {
	Rate       decimal.Decimal `json:"rate"`
	IsFallback bool            `json:"is_fallback"`
	StoredAt   time.Time       `json:"stored_at"`
}

type RateCache interface {
	GetRate(ctx context.Context, base, quote string) (*CachedRate, error)
	SetRate(ctx context.Context, base, quote string, rate CachedRate, ttl time.Duration) error
}

type RedisRateCache struct {
	rdb *redis.Client
}

func NewRateCache(rdb *redis.Client) RateCache {
	return &RedisRateCache{rdb: rdb}
}

func rateKey(base, quote string) string {
	return fmt.Sprintf("exchange-rate:%s:%s", base, quote)
}

// GetRate returns ErrNotFound on a cache miss.
func (c *RedisRateCache) GetRate(ctx context.Context, base, quote string) (*CachedRate, error) {
	val, err := c.rdb.Get(ctx, rateKey(base, quote)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cached CachedRate
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("decode cached rate: %w", err)
	}
	return &cached, nil
}

// SetRate overwrites the pair's entry wholesale.
func (c *RedisRateCache) SetRate(ctx context.Context, base, quote string, rate CachedRate, ttl time.Duration) error {
	payload, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, rateKey(base, quote), payload, ttl).Err()
}
