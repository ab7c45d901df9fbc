package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a fixed-window limiter backed by Redis, for deployments
// running more than one instance. Each key maps to a counter that
// expires when its window ends, so INCR + PEXPIRE gives the same
// (count, reset) semantics as MemoryStore across processes.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	max    int
	period time.Duration
}

// NewRedisStore creates a Redis-backed limiter allowing max requests per
// period for each key.
func NewRedisStore(rdb *redis.Client, max int, period time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit:lead:",
		max:    max,
		period: period,
	}
}

// Check counts one request against key's current window.
func (s *RedisStore) Check(ctx context.Context, key string) (Result, error) {
	rkey := s.prefix + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	ttl := pipe.PTTL(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis check failed: %w", err)
	}

	count := int(incr.Val())
	remaining := ttl.Val()

	// First request in a window, or a counter left without expiry by a
	// crashed PEXPIRE: start the window now.
	if count == 1 || remaining < 0 {
		if err := s.rdb.PExpire(ctx, rkey, s.period).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: redis expire failed: %w", err)
		}
		remaining = s.period
	}

	reset := time.Now().Add(remaining)
	if count > s.max {
		return Result{Allowed: false, Limit: s.max, Remaining: 0, Reset: reset}, nil
	}

	left := s.max - count
	if left < 0 {
		left = 0
	}
	return Result{Allowed: true, Limit: s.max, Remaining: left, Reset: reset}, nil
}
