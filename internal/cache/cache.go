package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client. A client built from an empty or whitespace-only
// address is "unconfigured": every call is a no-op and Configured reports
// false, which callers use to fail open.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client. An empty addr yields an unconfigured client.
func New(addr, password string, db int) *Client {
	if strings.TrimSpace(addr) == "" {
		return &Client{}
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Configured reports whether a real Redis connection is behind this client.
func (c *Client) Configured() bool {
	return c != nil && c.client != nil
}

// Unwrap exposes the underlying redis client for pipelined operations.
// Returns nil when unconfigured.
func (c *Client) Unwrap() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Ping checks connectivity. Unconfigured clients report nil so startup does
// not fail when Redis is intentionally absent.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool, ignoring errors on unconfigured clients.
func (c *Client) Close() error {
	if !c.Configured() {
		return nil
	}
	return c.client.Close()
}

// Set stores value with TTL, swallowing redis errors (fail safe).
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.Configured() {
		return nil
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return nil
	}
	return nil
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if !c.Configured() {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		// fail safe: behave like cache miss
		return nil, nil
	}
	return res, nil
}

// Delete removes a key, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	if !c.Configured() {
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return nil
	}
	return nil
}
