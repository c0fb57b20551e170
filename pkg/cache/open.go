package cache

import (
	"context"
	"fmt"

	"github.com/AFS-Neto/Steam-Extrator/pkg/config"
)

// Open constructs the cache backend selected by configuration
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(), nil
	case "redis":
		return NewRedisCache(ctx, cfg.RedisAddr, "")
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
