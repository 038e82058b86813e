package counter

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrExpireScript increments and sets the TTL in one server-side step, so
// concurrent writers on the same window key cannot interleave between the
// increment and the expiry.
var incrExpireScript = redis.NewScript(`
local v = redis.call('INCRBY', KEYS[1], ARGV[1])
if v == tonumber(ARGV[1]) then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return v
`)

// RedisStore implements Store on a Redis instance shared by all gateway
// replicas, making window counters linearizable across the fleet.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With(slog.String("component", "counter_store")),
	}
}

func (s *RedisStore) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	v, err := incrExpireScript.Run(ctx, s.client, []string{key}, delta, seconds).Int64()
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
