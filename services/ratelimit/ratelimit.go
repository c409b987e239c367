package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/trezcool/attendance/core"
)

// Limiter caps the number of attempts per key (e.g. client IP) within a window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns a redis backed Limiter when conf.Redis.Addr is set, an in-memory one otherwise.
// A non-positive limit disables limiting.
func New(conf *core.Config) Limiter {
	limit, window := conf.Server.LoginRateLimit, conf.Server.LoginRateWindow
	if limit <= 0 || window <= 0 {
		return Unlimited{}
	}
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		return NewRedisLimiter(rdb, "attendance:login:", limit, window)
	}
	return NewMemoryLimiter(limit, window)
}

type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// MemoryLimiter is a token bucket per key: limit attempts, refilled evenly over window.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	every    rate.Limit
	burst    int
	ttl      time.Duration
	nowFunc  func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		ttl:      window,
		nowFunc:  time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	v, ok := l.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)
	l.evict(now)
	return allowed, nil
}

// evict forgets the keys idle for longer than a window; their buckets are full again anyway.
func (l *MemoryLimiter) evict(now time.Time) {
	for key, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.limiters, key)
		}
	}
}

// RedisLimiter counts attempts per key in fixed windows shared by every API instance.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: int64(limit), window: window}
}

// incrWindow counts a hit and (re)arms the window expiry in one atomic step.
// Keys found without an expiry get one, so a counter can never outlive its window.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := incrWindow.Run(ctx, l.rdb, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}

func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}
