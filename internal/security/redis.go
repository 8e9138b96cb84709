package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments KEYS[1] unless it already reached ARGV[1], setting a
// PEXPIRE of ARGV[2] on the first hit. Returns {allowed, count, pttl}.
var hitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {0, current, redis.call('PTTL', KEYS[1])}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, current, redis.call('PTTL', KEYS[1])}
`)

// RedisStore shares rate limit windows between server instances.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    Clock
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "crm:ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Hit(ctx context.Context, key string, max int, window time.Duration) (Decision, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, max, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	count := int(res[1])
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   res[0] == 1,
		Limit:     max,
		Remaining: remaining,
		ResetAt:   s.resetAt(res[2], window),
	}, nil
}

func (s *RedisStore) Peek(ctx context.Context, key string, max int) (Decision, error) {
	k := s.prefix + key

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, k)
	ttlCmd := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("reading rate limit window: %w", err)
	}

	count, err := getCmd.Int()
	if errors.Is(err, redis.Nil) {
		return Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: s.now()}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("parsing rate limit count: %w", err)
	}

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   remaining > 0,
		Limit:     max,
		Remaining: remaining,
		ResetAt:   s.now().Add(ttlCmd.Val()),
	}, nil
}

func (s *RedisStore) resetAt(pttlMs int64, window time.Duration) time.Time {
	if pttlMs < 0 {
		return s.now().Add(window)
	}
	return s.now().Add(time.Duration(pttlMs) * time.Millisecond)
}
