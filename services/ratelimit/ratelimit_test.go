package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	// other clients have their own bucket
	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)

	// one token back every window/limit
	now = now.Add(20 * time.Second)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	// idle keys are forgotten
	now = now.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "10.0.0.3")
	assert.Len(t, l.limiters, 1)
}

func TestNew(t *testing.T) {
	conf := &core.Config{}
	assert.IsType(t, Unlimited{}, New(conf))

	conf.Server.LoginRateLimit = 5
	conf.Server.LoginRateWindow = time.Minute
	assert.IsType(t, &MemoryLimiter{}, New(conf))

	conf.Redis.Addr = "localhost:6379"
	assert.IsType(t, &RedisLimiter{}, New(conf))
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	l := NewRedisLimiter(rdb, "attendance:test:"+uuid.NewString()+":", 2, time.Minute)
	defer func() { _ = l.Close() }()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := rdb.TTL(ctx, l.prefix+"10.0.0.1").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	t.Run("counter without expiry", func(t *testing.T) {
		k := l.prefix + "10.0.0.2"
		require.NoError(t, rdb.Set(ctx, k, 5, 0).Err())

		ok, err := l.Allow(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.False(t, ok)

		ttl, err := rdb.TTL(ctx, k).Result()
		require.NoError(t, err)
		assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl = %v", ttl)
	})
}
