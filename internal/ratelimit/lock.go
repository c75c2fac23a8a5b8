package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseIfOwner deletes the lock only while it still holds the caller's
// token, so a run that outlived its TTL cannot free a newer run's lock.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// allocationLock allows one invoice run per user at a time. With redis the
// lock is shared by every API instance and coachctl; without it only this
// process is covered.
type allocationLock struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger

	mu    sync.Mutex
	local map[string]struct{}
}

func newAllocationLock(client *redis.Client, ttl time.Duration, log *zap.Logger) *allocationLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &allocationLock{client: client, ttl: ttl, log: log, local: map[string]struct{}{}}
}

func allocationLockKey(userID string) string {
	return fmt.Sprintf(keyAllocationLock, userID)
}

// acquire returns ErrAllocationInProgress while another run holds the user's
// lock. The returned func is safe to call once the request context is done.
func (l *allocationLock) acquire(ctx context.Context, userID string) (func(), error) {
	key := allocationLockKey(userID)
	if l.client == nil {
		return l.acquireLocal(key)
	}

	owner := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire allocation lock: %w", err)
	}
	if !acquired {
		return nil, ErrAllocationInProgress
	}
	return func() {
		if err := releaseIfOwner.Run(context.WithoutCancel(ctx), l.client, []string{key}, owner).Err(); err != nil {
			l.log.Warn("allocation lock release failed", zap.String("user_id", userID), zap.Error(err))
		}
	}, nil
}

func (l *allocationLock) acquireLocal(key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.local[key]; held {
		return nil, ErrAllocationInProgress
	}
	l.local[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.local, key)
			l.mu.Unlock()
		})
	}, nil
}
