package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes one token bucket per key: Capacity tokens, refilled by
// RefillTokens every RefillInterval. Idle buckets expire after TTL.
type Config struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// Result is the outcome of taking one token.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// TokenBucket is a Redis-backed limiter shared by every API instance.
type TokenBucket struct {
	rdb redis.Scripter
	cfg Config
	now func() time.Time
}

// NewTokenBucket returns a limiter storing its buckets in rdb.
func NewTokenBucket(rdb redis.Scripter, cfg Config) *TokenBucket {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &TokenBucket{rdb: rdb, cfg: cfg, now: time.Now}
}

// Allow takes one token from the bucket for key.
func (b *TokenBucket) Allow(ctx context.Context, key string) (Result, error) {
	args := []any{
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}
	vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{b.cfg.Prefix + ":" + key}, args...).Result()
	if err != nil {
		return Result{}, fmt.Errorf("run token bucket script: %w", err)
	}
	return parseResult(vals, b.cfg.Capacity)
}

func parseResult(vals any, limit int) (Result, error) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return Result{}, fmt.Errorf("unexpected token bucket result %#v", vals)
	}
	return Result{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      limit,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
