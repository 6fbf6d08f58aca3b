package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "mediagate:ratelimit:"

// RedisStore keeps counters in Redis so that several instances share limits.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ CounterStore = (*RedisStore)(nil)

// NewRedisStore creates a store that prefixes every key with prefix.
// An empty prefix uses "mediagate:ratelimit:".
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Increment uses INCR so concurrent callers never lose counts. The window
// starts on the first increment; a key left without an expiry is repaired.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	k := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr: %w", err)
	}

	count := incr.Val()
	ttl := pttl.Val()
	if count == 1 || ttl < 0 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		ttl = window
	}
	return count, now.Add(ttl), nil
}
