package httpx

import (
	"context"
	"time"

	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisRatePrefix  = "notes:ratelimit:"
	redisDialTimeout = 2 * time.Second
	redisCmdTimeout  = 250 * time.Millisecond
)

// redisRateLimiter counts requests in Redis so that limits hold across
// multiple API instances. Redis failures never block traffic; the limiter
// fails open and logs the error.
type redisRateLimiter struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &redisRateLimiter{client: client, logger: logger}, nil
}

func (rl *redisRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCmdTimeout)
	defer cancel()

	redisKey := redisRatePrefix + key

	// One round trip: bump the counter, arm the window expiry only if the
	// key has none yet, and read the remaining TTL for Retry-After.
	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logFailure(err)
		return rateDecision{allowed: true}
	}

	count := int(incr.Val())
	ttl := ttlCmd.Val()
	if ttl <= 0 {
		ttl = window
	}
	return rateDecision{
		allowed:   count <= limit,
		count:     count,
		windowEnd: time.Now().Add(ttl),
	}
}

func (rl *redisRateLimiter) Close() {
	if rl.client != nil {
		_ = rl.client.Close()
	}
}

func (rl *redisRateLimiter) logFailure(err error) {
	if rl.logger == nil {
		return
	}
	rl.logger.Warn("redis rate limiter unavailable, allowing request", "error", err)
}
