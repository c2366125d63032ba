// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"farmer-assistant-workers/internal/common/config"
)

// RedisClient holds the connection behind the conversation session store.
type RedisClient struct {
	Client *redis.Client
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	dial := config.GetDuration(cfg.DialTimeout)
	if dial <= 0 {
		dial = 5 * time.Second
	}
	pool := cfg.PoolSize
	if pool <= 0 {
		pool = 10
	}
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dial,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     pool,
		MinIdleConns: pool / 5,
	}
}

// NewRedis builds a client without touching the network.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	return &RedisClient{Client: redis.NewClient(redisOptions(cfg))}, nil
}

// Connect builds a client and pings it, closing the client if the ping fails.
func Connect(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	rc, err := NewRedis(cfg)
	if err != nil {
		return nil, err
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
