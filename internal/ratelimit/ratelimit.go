// Package ratelimit is a fixed-window request limiter backed by Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rl:"

type Limiter struct {
	client *redis.Client
	rate   int
	period time.Duration
}

// New allows rate hits per key in each window of period
func New(client *redis.Client, rate int, period time.Duration) *Limiter {
	return &Limiter{client: client, rate: rate, period: period}
}

// Allow counts one hit for key and reports whether it is within the limit.
// The window starts with the first hit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := keyPrefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, l.period)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrapf(err, "ratelimit: %s", key)
	}

	return incr.Val() <= int64(l.rate), nil
}
