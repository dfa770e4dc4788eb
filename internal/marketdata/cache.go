package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const defaultPriceTTL = 10 * time.Minute

// Cache fronts a PriceSource with a Redis latest-price cache. A cold or down
// Redis degrades to pass-through; it never blocks a price lookup.
type Cache struct {
	client *goredis.Client
	next   PriceSource
	ttl    time.Duration
	log    *slog.Logger
}

// CacheConfig configures the Redis price cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewCache connects to Redis and wraps next. Returns an error only if the
// initial ping fails; callers may then choose to run uncached.
func NewCache(cfg CacheConfig, next PriceSource, log *slog.Logger) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultPriceTTL
	}
	return &Cache{client: client, next: next, ttl: ttl, log: log}, nil
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

func priceKey(symbol string) string { return "price:latest:" + symbol }

// Price returns the cached latest price, falling through to the wrapped
// source on miss and writing the result back.
func (c *Cache) Price(ctx context.Context, symbol string) (float64, error) {
	val, err := c.client.Get(ctx, priceKey(symbol)).Result()
	if err == nil {
		if p, perr := strconv.ParseFloat(val, 64); perr == nil && p > 0 {
			return p, nil
		}
	} else if err != goredis.Nil {
		c.log.Warn("price cache read failed", "symbol", symbol, "err", err)
	}

	p, err := c.next.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, priceKey(symbol), strconv.FormatFloat(p, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.log.Warn("price cache write failed", "symbol", symbol, "err", err)
	}
	return p, nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
