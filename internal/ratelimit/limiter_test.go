package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/brikx/coach/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiterWithoutRedis(t *testing.T) {
	l, err := NewLimiter(nil, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	res, err := l.AllowUser(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiterRequiresRedisWhenEnabled(t *testing.T) {
	_, err := NewLimiter(nil, config.Config{RateLimitEnabled: true, RateLimitPerSecond: 1, RateLimitBurst: 1}, zap.NewNop())
	assert.Error(t, err)
}

func TestLocalAllocationLock(t *testing.T) {
	l, err := NewLimiter(nil, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	release, err := l.LockAllocation(ctx, "42")
	require.NoError(t, err)

	_, err = l.LockAllocation(ctx, "42")
	assert.ErrorIs(t, err, ErrAllocationInProgress)

	other, err := l.LockAllocation(ctx, "43")
	require.NoError(t, err)
	other()

	release()
	again, err := l.LockAllocation(ctx, "42")
	require.NoError(t, err)
	again()
}

func TestAllocationLockReleaseIsIdempotent(t *testing.T) {
	lock := newAllocationLock(nil, 0, zap.NewNop())
	assert.Equal(t, time.Minute, lock.ttl)
	assert.Equal(t, "coach:lock:allocation:42", allocationLockKey("42"))

	first, err := lock.acquire(context.Background(), "42")
	require.NoError(t, err)
	first()
	second, err := lock.acquire(context.Background(), "42")
	require.NoError(t, err)

	// A late second call from the first run must not free the second run's lock.
	first()
	_, err = lock.acquire(context.Background(), "42")
	assert.ErrorIs(t, err, ErrAllocationInProgress)
	second()
}

func TestNilLimiterLocksNothing(t *testing.T) {
	var l *Limiter
	release, err := l.LockAllocation(context.Background(), "42")
	require.NoError(t, err)
	release()
}

func TestEvaluate(t *testing.T) {
	res := evaluate(1, 2500, 2, 5)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, 5, res.Limit)

	res = evaluate(0, 500, 2, 5)
	assert.False(t, res.Allowed)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, "1", res.RetryAfterHeader())
}
