package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Limiter shared by every API instance. Windows are aligned to
// multiples of the interval since the Unix epoch; each window gets its own
// counter key which expires when the window ends.
type Redis struct {
	client   redis.Cmdable
	prefix   string
	interval time.Duration
}

// NewRedis creates a Redis-backed limiter
func NewRedis(client redis.Cmdable, prefix string, interval time.Duration) *Redis {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{client: client, prefix: prefix, interval: interval}
}

// Allow implements Limiter
func (r *Redis) Allow(ctx context.Context, key string, limit int, now time.Time) (bool, error) {
	k := r.windowKey(key, now)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireAt(ctx, k, r.ResetAt(now))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit incr %s: %w", k, err)
	}

	return incr.Val() <= int64(limit), nil
}

// Remaining implements Limiter
func (r *Redis) Remaining(ctx context.Context, key string, limit int, now time.Time) (int, error) {
	k := r.windowKey(key, now)

	count, err := r.client.Get(ctx, k).Int()
	if errors.Is(err, redis.Nil) {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ratelimit get %s: %w", k, err)
	}
	if rem := limit - count; rem > 0 {
		return rem, nil
	}
	return 0, nil
}

// ResetAt implements Limiter
func (r *Redis) ResetAt(now time.Time) time.Time {
	return time.Unix(0, (r.window(now)+1)*int64(r.interval))
}

func (r *Redis) window(now time.Time) int64 {
	return now.UnixNano() / int64(r.interval)
}

func (r *Redis) windowKey(key string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, r.window(now))
}
