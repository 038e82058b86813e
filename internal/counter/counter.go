// Package counter provides the shared atomic counter store used by the
// admission controller and the origin-trust IP limiter. Every mutation is an
// atomic increment-with-expiry; implementations must never emulate it with a
// separate read and write.
package counter

import (
	"context"
	"time"
)

// Store is the increment-with-expiry contract. IncrBy returns the counter
// value after the increment; the TTL is applied only when the increment
// creates the key, so a window's lifetime is fixed at first write.
type Store interface {
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}
