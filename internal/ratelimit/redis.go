package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counter is the subset of *redis.Client used by RedisFixedWindow.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisFixedWindow shares fixed windows between server instances. Every
// hit sets the expiry if the key has none, so a failed EXPIRE is repaired
// by the next request; Redis drops the key when the window ends.
type RedisFixedWindow struct {
	client counter
	limit  int
	period time.Duration
	prefix string
}

// NewRedisFixedWindow connects to redisURL and verifies the connection.
func NewRedisFixedWindow(ctx context.Context, redisURL string, limit int, period time.Duration) (*RedisFixedWindow, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRedisFixedWindow(client, limit, period), client, nil
}

func newRedisFixedWindow(c counter, limit int, period time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{client: c, limit: limit, period: period, prefix: "lqt:ratelimit:"}
}

func (r *RedisFixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key
	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("incr %s: %w", k, err)
	}
	if err := r.client.ExpireNX(ctx, k, r.period).Err(); err != nil {
		return true, fmt.Errorf("expire %s: %w", k, err)
	}
	return n <= int64(r.limit), nil
}
