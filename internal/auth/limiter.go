package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// LimiterPolicy bounds how many failed logins an identifier may attempt.
type LimiterPolicy struct {
	MaxAttempts int
	Window      time.Duration
	Block       time.Duration
}

// DefaultLimiterPolicy allows five attempts per five minutes, then blocks for fifteen.
var DefaultLimiterPolicy = LimiterPolicy{MaxAttempts: 5, Window: 5 * time.Minute, Block: 15 * time.Minute}

// LoginLimiter throttles login attempts per identifier.
type LoginLimiter interface {
	// Allow counts an attempt and reports whether it may proceed. When it may
	// not, the returned duration is how long the caller stays blocked.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	// Reset forgets the attempts of key after a successful login.
	Reset(ctx context.Context, key string) error
}

// MemoryLimiter keeps attempt counters in process memory.
type MemoryLimiter struct {
	policy   LimiterPolicy
	now      func() time.Time
	mu       sync.Mutex
	attempts map[string]*loginAttempt
}

type loginAttempt struct {
	count     int
	firstTry  time.Time
	blockedAt *time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(policy LimiterPolicy) *MemoryLimiter {
	return &MemoryLimiter{policy: policy, now: time.Now, attempts: make(map[string]*loginAttempt)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	attempt, ok := l.attempts[key]
	if !ok {
		l.attempts[key] = &loginAttempt{count: 1, firstTry: now}
		return true, 0, nil
	}

	if attempt.blockedAt != nil {
		if elapsed := now.Sub(*attempt.blockedAt); elapsed < l.policy.Block {
			return false, l.policy.Block - elapsed, nil
		}
		l.attempts[key] = &loginAttempt{count: 1, firstTry: now}
		return true, 0, nil
	}

	if now.Sub(attempt.firstTry) > l.policy.Window {
		attempt.count = 1
		attempt.firstTry = now
		return true, 0, nil
	}

	attempt.count++
	if attempt.count > l.policy.MaxAttempts {
		attempt.blockedAt = &now
		return false, l.policy.Block, nil
	}
	return true, 0, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
	return nil
}

// prune drops entries that can no longer affect a decision.
func (l *MemoryLimiter) prune(now time.Time) {
	horizon := l.policy.Window + l.policy.Block
	for key, attempt := range l.attempts {
		if now.Sub(attempt.firstTry) > horizon {
			delete(l.attempts, key)
		}
	}
}

// RedisLimiter shares attempt counters between API replicas through Redis.
type RedisLimiter struct {
	rdb    *redis.Client
	policy LimiterPolicy
	prefix string
}

// NewRedisLimiter creates a limiter storing its keys under prefix.
func NewRedisLimiter(rdb *redis.Client, policy LimiterPolicy, prefix string) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policy: policy, prefix: prefix}
}

func (l *RedisLimiter) attemptsKey(key string) string { return l.prefix + "attempts:" + key }
func (l *RedisLimiter) blockKey(key string) string    { return l.prefix + "block:" + key }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, l.blockKey(key)).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "read login block")
	}
	if ttl > 0 {
		return false, ttl, nil
	}

	count, err := l.rdb.Incr(ctx, l.attemptsKey(key)).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "count login attempt")
	}
	if count == 1 {
		if err := l.rdb.PExpire(ctx, l.attemptsKey(key), l.policy.Window).Err(); err != nil {
			return false, 0, errors.Wrap(err, "expire login attempts")
		}
	}
	if count <= int64(l.policy.MaxAttempts) {
		return true, 0, nil
	}

	_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.blockKey(key), 1, l.policy.Block)
		pipe.Del(ctx, l.attemptsKey(key))
		return nil
	})
	if err != nil {
		return false, 0, errors.Wrap(err, "block login")
	}
	return false, l.policy.Block, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.rdb.Del(ctx, l.attemptsKey(key), l.blockKey(key)).Err(), "reset login attempts")
}
