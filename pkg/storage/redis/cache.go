package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coinfeed/config"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "coinfeed:latest:"

// LatestPrice is the cached result of the most recent successful price fetch.
type LatestPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PriceCache keeps the latest price per symbol with a TTL.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg config.RedisConfig) (*PriceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PriceCache{client: client, ttl: cfg.TTL}, nil
}

// SetLatestPrice stores price for symbol, replacing any previous value.
func (c *PriceCache) SetLatestPrice(ctx context.Context, symbol string, price float64, fetchedAt time.Time) error {
	data, err := json.Marshal(LatestPrice{Symbol: symbol, Price: price, FetchedAt: fetchedAt.UTC()})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, keyPrefix+symbol, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache latest price %s: %w", symbol, err)
	}
	return nil
}

// GetLatestPrice returns the cached price for symbol, or nil when absent or expired.
func (c *PriceCache) GetLatestPrice(ctx context.Context, symbol string) (*LatestPrice, error) {
	data, err := c.client.Get(ctx, keyPrefix+symbol).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var lp LatestPrice
	if err := json.Unmarshal([]byte(data), &lp); err != nil {
		return nil, fmt.Errorf("decode cached price %s: %w", symbol, err)
	}
	return &lp, nil
}

func (c *PriceCache) Close() error {
	return c.client.Close()
}
