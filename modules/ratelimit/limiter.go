// Package ratelimit provides a Redis-backed sliding window rate limiter
// guarding the credential endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config describes one sliding window.
type Config struct {
	RequestsPerWindow int
	WindowSize        time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// SlidingWindowLimiter tracks request timestamps per key in a Redis sorted
// set. Entries older than the window are pruned on every check.
type SlidingWindowLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

// NewSlidingWindowLimiter creates a limiter with the given key prefix.
func NewSlidingWindowLimiter(client *redis.Client, config Config, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		config: config,
		prefix: prefix,
	}
}

// Allow checks whether one more request fits in the key's window and records
// it if so.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-l.config.WindowSize)
	redisKey := l.prefix + key

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", windowStart.UnixMilli()))
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}

	count := int(countCmd.Val())
	if count >= l.config.RequestsPerWindow {
		retryAfter := l.config.WindowSize
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			retryAfter = time.Until(oldestAt.Add(l.config.WindowSize))
		}
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	record := l.client.TxPipeline()
	record.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d:%s", now.UnixMilli(), uuid.New().String()),
	})
	record.PExpire(ctx, redisKey, l.config.WindowSize)
	if _, err := record.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to record request: %w", err)
	}

	return &Result{Allowed: true, Remaining: l.config.RequestsPerWindow - count - 1}, nil
}
