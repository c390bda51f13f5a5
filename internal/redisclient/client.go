package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	catalogInStockKey = "catalog:in-stock"
	idempotencyPrefix = "idempotency:"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// New wraps an existing Redis client
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks that Redis answers
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetInStock returns the cached public product list
func (c *Client) GetInStock(ctx context.Context) ([]models.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, catalogInStockKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read catalog cache: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false, fmt.Errorf("failed to decode catalog cache: %w", err)
	}
	return products, true, nil
}

// SetInStock caches the public product list
func (c *Client) SetInStock(ctx context.Context, products []models.Product, ttl time.Duration) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode catalog cache: %w", err)
	}
	return c.rdb.Set(ctx, catalogInStockKey, raw, ttl).Err()
}

// Invalidate drops the cached product list
func (c *Client) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogInStockKey).Err()
}

// GetOrderResult returns the stored result for an idempotency key
func (c *Client) GetOrderResult(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// SaveOrderResult stores the result for an idempotency key unless one is already present
func (c *Client) SaveOrderResult(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.rdb.SetNX(ctx, idempotencyPrefix+key, payload, ttl).Err()
}
