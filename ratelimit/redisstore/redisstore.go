// Package redisstore implements the admission policy of ratelimit on a
// shared Redis backend, for hosts that run more than one process and need
// all of them to account against the same windows. The in-process limiter
// in ratelimit remains the default; this adapter trades its lock-level
// atomicity guarantees for cross-process sharing.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devboost/secore/ratelimit"
)

const burstWindow = time.Second

// Config holds connection settings for the Redis backend.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Limiter checks admission against windows stored in Redis sorted sets,
// with lockouts stored as expiring keys.
type Limiter struct {
	client *redis.Client
	policy ratelimit.Config
}

// New connects to Redis and returns a shared-state limiter enforcing the
// given policy.
func New(cfg Config, policy ratelimit.Config) (*Limiter, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if policy.MaxRequests <= 0 || policy.Window <= 0 {
		return nil, fmt.Errorf("policy requires positive MaxRequests and Window")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Limiter{client: client, policy: policy}, nil
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	return l.client.Close()
}

// Check evaluates the same lockout/prune/burst/quota sequence as the
// in-process limiter, against shared state. Unlike the in-process limiter
// it can fail, and callers decide whether to fail open or closed.
func (l *Limiter) Check(ctx context.Context, identity string) (ratelimit.Result, error) {
	now := time.Now()
	windowKey := "secore:rl:win:" + identity
	lockKey := "secore:rl:lock:" + identity

	// 1. Active lockout.
	lockVal, err := l.client.Get(ctx, lockKey).Result()
	if err != nil && err != redis.Nil {
		return ratelimit.Result{}, fmt.Errorf("lockout lookup failed: %w", err)
	}
	if err == nil {
		until, parseErr := strconv.ParseInt(lockVal, 10, 64)
		if parseErr == nil && until > now.UnixMilli() {
			return ratelimit.Result{
				RetryAfter: time.Duration(until-now.UnixMilli()) * time.Millisecond,
			}, nil
		}
	}

	// 2-3. Prune the window and count the trailing second in one round trip.
	windowStart := now.Add(-l.policy.Window)
	burstStart := now.Add(-burstWindow)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, windowKey, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	totalCmd := pipe.ZCard(ctx, windowKey)
	burstCmd := pipe.ZCount(ctx, windowKey,
		strconv.FormatInt(burstStart.UnixMilli(), 10), "+inf")
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Result{}, fmt.Errorf("window accounting failed: %w", err)
	}

	if l.policy.BurstLimit > 0 && burstCmd.Val() >= int64(l.policy.BurstLimit) {
		return l.lockout(ctx, lockKey, now, 2*l.policy.Window)
	}

	// 4. Sustained quota.
	if totalCmd.Val() >= int64(l.policy.MaxRequests) {
		return l.lockout(ctx, lockKey, now, l.policy.Window)
	}

	// 5. Record and admit. The member carries a nanosecond suffix so
	// same-millisecond requests do not collapse into one entry.
	member := fmt.Sprintf("%d-%d", now.UnixMilli(), now.UnixNano())
	pipe = l.client.TxPipeline()
	pipe.ZAdd(ctx, windowKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.Expire(ctx, windowKey, 2*l.policy.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Result{}, fmt.Errorf("recording request failed: %w", err)
	}

	return ratelimit.Result{Allowed: true}, nil
}

func (l *Limiter) lockout(ctx context.Context, lockKey string, now time.Time, d time.Duration) (ratelimit.Result, error) {
	until := now.Add(d).UnixMilli()
	if err := l.client.Set(ctx, lockKey, strconv.FormatInt(until, 10), d).Err(); err != nil {
		return ratelimit.Result{}, fmt.Errorf("setting lockout failed: %w", err)
	}
	return ratelimit.Result{RetryAfter: d}, nil
}
