package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the key was not found in the cache
var ErrCacheMiss = errors.New("cache miss")

// Cache is the read-through store the enricher consults before hitting the
// store API. Implementations must treat a missing key as ErrCacheMiss, not
// an error condition.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
