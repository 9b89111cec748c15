package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"mosaic/internal/adapters/config"
)

// Client wraps Redis for cross-job coordination
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AcquireLock attempts to take a named lock with the given TTL.
// Returns false if another holder already owns it.
func (c *Client) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockKey(name), owner, ttl).Result()
}

// ReleaseLock releases a named lock if owned by the given owner.
// Releasing someone else's lock is a no-op.
func (c *Client) ReleaseLock(ctx context.Context, name, owner string) error {
	// Check-and-delete so an expired-and-reacquired lock is left alone
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0`
	return c.rdb.Eval(ctx, script, []string{lockKey(name)}, owner).Err()
}

func lockKey(name string) string {
	return "mosaic:lock:" + name
}
