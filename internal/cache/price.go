package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const priceKeyPrefix = "catalog:price:"

// PriceCache stores computed product prices. A miss is reported as ok=false,
// never as an error.
type PriceCache interface {
	Get(ctx context.Context, productID string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, productID string, price decimal.Decimal) error
	// InvalidateAll drops every cached price. Bundle prices depend on their
	// members, so any catalog write can stale any entry.
	InvalidateAll(ctx context.Context) error
}

type RedisPriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPriceCache(rc *RedisClient, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{client: rc.Client, ttl: ttl}
}

func (c *RedisPriceCache) Get(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, priceKeyPrefix+productID).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

func (c *RedisPriceCache) Set(ctx context.Context, productID string, price decimal.Decimal) error {
	return c.client.Set(ctx, priceKeyPrefix+productID, price.String(), c.ttl).Err()
}

func (c *RedisPriceCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, priceKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// MemoryPriceCache is used when redis is disabled and in tests.
type MemoryPriceCache struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func NewMemoryPriceCache() *MemoryPriceCache {
	return &MemoryPriceCache{prices: make(map[string]decimal.Decimal)}
}

func (c *MemoryPriceCache) Get(_ context.Context, productID string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.prices[productID]
	return d, ok, nil
}

func (c *MemoryPriceCache) Set(_ context.Context, productID string, price decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[productID] = price
	return nil
}

func (c *MemoryPriceCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.prices)
	return nil
}

func (c *MemoryPriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prices)
}
