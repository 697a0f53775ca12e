package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the budget for one limiter instance.
type Config struct {
	// Points is the number of points a key may consume inside one window
	// before it is blocked.
	Points int
	// Window is the fixed accumulation window.
	Window time.Duration
	// BlockDuration is how long a key stays blocked once the budget is
	// exhausted. It may exceed Window.
	BlockDuration time.Duration
}

// Result is a snapshot of one key's counter.
type Result struct {
	ConsumedPoints int
	RetryAfter     time.Duration
	Blocked        bool
}

// Limiter is a generic consume/peek/reset points limiter over Redis.
// Budget comparisons are inclusive: a key is blocked once ConsumedPoints
// reaches Points.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// New creates a [Limiter] with its own key namespace.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (l *Limiter) key(k string) string {
	return l.prefix + ":" + k
}

// consumeLua atomically increments a counter, arms the window TTL on the
// first hit, and extends the TTL to the block duration when the budget is
// exhausted.
//
// KEYS[1] = counter key
// ARGV[1] = points to consume
// ARGV[2] = budget
// ARGV[3] = window ms
// ARGV[4] = block ms
//
// Returns {consumedPoints, pttlMs, blocked}.
var consumeLua = redis.NewScript(`
local consumed = redis.call('INCRBY', KEYS[1], ARGV[1])
if consumed == tonumber(ARGV[1]) then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
local blocked = 0
if consumed >= tonumber(ARGV[2]) then
  blocked = 1
  local blockMs = tonumber(ARGV[4])
  if blockMs > 0 and redis.call('PTTL', KEYS[1]) < blockMs then
    redis.call('PEXPIRE', KEYS[1], blockMs)
  end
end
return {consumed, redis.call('PTTL', KEYS[1]), blocked}
`)

// Consume adds points to the key's counter and reports the resulting state.
// The returned Result is valid even when the key became blocked by this call.
func (l *Limiter) Consume(ctx context.Context, key string, points int) (*Result, error) {
	if points <= 0 {
		points = 1
	}

	raw, err := consumeLua.Run(ctx, l.redis,
		[]string{l.key(key)},
		points,
		l.config.Points,
		l.config.Window.Milliseconds(),
		l.config.BlockDuration.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("%w: unexpected lua result", ErrRedisUnavailable)
	}

	consumed, _ := values[0].(int64)
	pttl, _ := values[1].(int64)
	blocked, _ := values[2].(int64)

	return &Result{
		ConsumedPoints: int(consumed),
		RetryAfter:     pttlToDuration(pttl),
		Blocked:        blocked == 1,
	}, nil
}

// Get returns the current counter state without mutating it, or nil when the
// key has no live counter.
func (l *Limiter) Get(ctx context.Context, key string) (*Result, error) {
	pipe := l.redis.Pipeline()
	getCmd := pipe.Get(ctx, l.key(key))
	ttlCmd := pipe.PTTL(ctx, l.key(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	consumed, err := getCmd.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return &Result{
		ConsumedPoints: int(consumed),
		RetryAfter:     pttlToDuration(ttlCmd.Val().Milliseconds()),
		Blocked:        consumed >= int64(l.config.Points),
	}, nil
}

// Reset drops the key's counter, lifting any block.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func pttlToDuration(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
