package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brikx/coach/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyUserRequests   = "coach:ratelimit:user:%s"
	keyAllocationLock = "coach:lock:allocation:%s"
)

// ErrAllocationInProgress is returned when another invoice run holds the user's lock.
var ErrAllocationInProgress = errors.New("allocation_in_progress")

// Limiter throttles API writes per user and serializes invoice runs per user.
// Without redis, throttling is off and locks are process-local.
type Limiter struct {
	bucket  *TokenBucket
	lock    *allocationLock
	enabled bool
	rate    float64
	burst   int
}

func NewLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) (*Limiter, error) {
	log = log.Named("ratelimit")
	if cfg.RateLimitEnabled && client == nil {
		return nil, errors.New("rate limiting requires REDIS_ADDR")
	}
	if cfg.RateLimitEnabled && (cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst <= 0) {
		return nil, errors.New("rate limit per second and burst must be positive")
	}

	lockTTL := time.Duration(cfg.AllocationLockSeconds) * time.Second
	return &Limiter{
		bucket:  NewTokenBucket(client),
		lock:    newAllocationLock(client, lockTTL, log),
		enabled: cfg.RateLimitEnabled,
		rate:    cfg.RateLimitPerSecond,
		burst:   cfg.RateLimitBurst,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled && l.bucket != nil
}

func (l *Limiter) AllowUser(ctx context.Context, userID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUserRequests, userID), l.rate, l.burst)
}

// LockAllocation acquires the per-user invoice run lock. The returned func releases it.
func (l *Limiter) LockAllocation(ctx context.Context, userID string) (func(), error) {
	if l == nil || l.lock == nil {
		return func() {}, nil
	}
	return l.lock.acquire(ctx, userID)
}
