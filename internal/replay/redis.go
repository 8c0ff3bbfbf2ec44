package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "initguard:replay:"

// RedisGuard shares seen hashes between instances through Redis.
type RedisGuard struct {
	client redis.UniversalClient
}

func NewRedisGuard(client redis.UniversalClient) *RedisGuard {
	return &RedisGuard{client: client}
}

// NewRedisGuardFromURL connects using a redis:// or rediss:// URL and pings
// the server.
func NewRedisGuardFromURL(ctx context.Context, url string) (*RedisGuard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisGuard(client), nil
}

func (g *RedisGuard) Seen(ctx context.Context, hash string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+hash, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording hash: %w", err)
	}
	return !ok, nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
