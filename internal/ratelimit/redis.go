package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkScript performs the whole window decision server-side so that
// concurrent checks from different server instances cannot both read
// "count=limit-1" and both pass. Returns {count, pttl_ms}; a count above the
// limit signals denial without having incremented the stored value.
var checkScript = redis.NewScript(`
-- KEYS[1] = bucket key
-- ARGV[1] = limit (int)
-- ARGV[2] = window_ms (int)
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local ttl = redis.call('PTTL', KEYS[1])
if count <= 0 or ttl < 0 then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return {1, tonumber(ARGV[2])}
end
if count < tonumber(ARGV[1]) then
  count = redis.call('INCR', KEYS[1])
  return {count, redis.call('PTTL', KEYS[1])}
end
return {count + 1, ttl}
`)

// RedisStore is the persistent Store variant. Buckets expire via PEXPIRE, so
// no sweep job is needed.
type RedisStore struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, clock: time.Now}
}

func (s *RedisStore) Check(ctx context.Context, namespace, identity string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, fmt.Errorf("ratelimit: limit and window must be positive")
	}

	key := BucketKey(namespace, identity)
	vals, err := checkScript.Run(ctx, s.rdb, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis check failed: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %v", vals)
	}

	count := int(vals[0])
	now := s.clock()
	resetAt := now.Add(time.Duration(vals[1]) * time.Millisecond)

	if count > limit {
		return Result{
			Allowed:           false,
			Remaining:         0,
			ResetAt:           resetAt,
			RetryAfterSeconds: retryAfterSeconds(now, resetAt),
		}, nil
	}

	return Result{Allowed: true, Remaining: limit - count, ResetAt: resetAt}, nil
}
