package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetOrderStatus caches an order's current status with a TTL
func (c *Client) SetOrderStatus(ctx context.Context, orderID, status string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("order-status:%s", orderID), status, ttl).Err()
}

// GetOrderStatus retrieves a cached order status. Returns redis.Nil error
// when the status is not cached.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	return c.rdb.Get(ctx, fmt.Sprintf("order-status:%s", orderID)).Result()
}

// InvalidateOrderStatus drops a cached order status
func (c *Client) InvalidateOrderStatus(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("order-status:%s", orderID)).Err()
}
