// AngelaMos | 2026
// ratelimit.go

package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter consumes one unit of quota for key under tier.
type RateLimiter interface {
	Allow(ctx context.Context, key string, tier Tier) (Decision, error)
}

// RedisLimiter is a GCRA limiter shared across instances through Redis.
// When Redis is unreachable and a fallback is configured, the decision is
// made by a process-local token bucket instead.
type RedisLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *LocalLimiter
}

func NewRedisLimiter(rdb *redis.Client, fallback *LocalLimiter) *RedisLimiter {
	return &RedisLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: fallback,
	}
}

func (rl *RedisLimiter) Allow(
	ctx context.Context,
	key string,
	tier Tier,
) (Decision, error) {
	limit := limitFor(tier)

	res, err := rl.limiter.Allow(ctx, key, limit)
	if err != nil {
		if rl.fallback == nil {
			return Decision{}, fmt.Errorf("redis rate limit %s: %w", key, err)
		}
		slog.WarnContext(ctx, "rate limiter store unavailable, using local fallback",
			"error", err,
			"key", key,
		)
		return rl.fallback.Allow(ctx, key, tier)
	}

	return decisionFromResult(res, tier), nil
}

func limitFor(tier Tier) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   tier.Limit,
		Burst:  tier.Limit,
		Period: tier.Window,
	}
}

func decisionFromResult(res *redis_rate.Result, tier Tier) Decision {
	d := Allow()
	if res.Allowed == 0 {
		d = Deny(ReasonRateLimit, "rate_limit:"+tier.Name)
	}
	d.Limit = tier.Limit
	d.Remaining = max(res.Remaining, 0)
	d.ResetAfter = res.ResetAfter
	if res.RetryAfter > 0 {
		d.RetryAfter = res.RetryAfter
	}
	return d
}

// RateKey identifies the quota bucket: authenticated callers by role and id,
// guests by client address.
func RateKey(req Request) string {
	if req.UserID > 0 {
		return fmt.Sprintf("ratelimit:%s:user:%d", req.Role, req.UserID)
	}
	return "ratelimit:guest:ip:" + req.IP
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess int64
}

// LocalLimiter is an in-memory token bucket limiter keyed the same way as
// RedisLimiter. State is per process.
type LocalLimiter struct {
	limiters sync.Map
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

func NewLocalLimiter() *LocalLimiter {
	l := &LocalLimiter{
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *LocalLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *LocalLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := l.now().Add(-entryTTL).Unix()
			l.limiters.Range(func(key, value any) bool {
				entry, ok := value.(*limiterEntry)
				if ok && entry.lastAccess < cutoff {
					l.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *LocalLimiter) Allow(
	_ context.Context,
	key string,
	tier Tier,
) (Decision, error) {
	if tier.Limit <= 0 || tier.Window <= 0 {
		return Decision{}, fmt.Errorf("invalid tier %q", tier.Name)
	}

	ratePerSec := float64(tier.Limit) / tier.Window.Seconds()
	now := l.now()

	entryI, loaded := l.limiters.Load(key)
	if !loaded {
		newEntry := &limiterEntry{
			limiter:    rate.NewLimiter(rate.Limit(ratePerSec), tier.Limit),
			lastAccess: now.Unix(),
		}
		entryI, _ = l.limiters.LoadOrStore(key, newEntry)
	}

	entry, ok := entryI.(*limiterEntry)
	if !ok {
		return Decision{}, fmt.Errorf("invalid limiter entry type")
	}
	entry.lastAccess = now.Unix()

	allowed := entry.limiter.AllowN(now, 1)
	interval := time.Duration(float64(time.Second) / ratePerSec)

	d := Allow()
	if !allowed {
		d = Deny(ReasonRateLimit, "rate_limit:"+tier.Name)
		d.RetryAfter = interval
	}
	d.Limit = tier.Limit
	d.Remaining = max(int(entry.limiter.TokensAt(now)), 0)
	d.ResetAfter = interval
	return d, nil
}
