package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/retryfetch/internal/infra/storage"
)

// Client wraps Redis operations for persisted error slots.
type Client struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ storage.Store = (*Client)(nil)

// Config holds Redis connection configuration.
type Config struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"` // 0 = no expiry
	Channel   string        `yaml:"channel"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg), nil
}

func newClient(rdb *redis.Client, cfg Config) *Client {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "retryfetch"
	}
	return &Client{rdb: rdb, prefix: prefix, ttl: cfg.TTL}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) slotKey(key string) string {
	return fmt.Sprintf("%s:slot:%s", c.prefix, key)
}

// Get reads a slot.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, c.slotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return data, nil
}

// Set writes a slot, applying the configured TTL.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, c.slotKey(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.slotKey(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
