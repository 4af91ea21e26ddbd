// ABOUTME: Selects the robots.txt persistence backend from configuration
// ABOUTME: Returns the cache together with a function that releases it

package cache

import (
	"github.com/cockroachdb/errors"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/cache/memory"
	"content-fetch-api/infrastructure/cache/redis"
	"content-fetch-api/infrastructure/cache/sqlite"
	"content-fetch-api/pkg/config"
)

// New builds the cache named by cfg.Type
func New(cfg config.CacheConfig, logger interfaces.Logger) (interfaces.Cache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case "", "memory":
		return memory.NewMemoryCache(cfg.Memory), noop, nil
	case "redis":
		c, err := redis.NewRedisCache(cfg.Redis)
		if err != nil {
			return nil, noop, errors.Wrap(err, "redis cache")
		}
		return c, c.Close, nil
	case "sqlite":
		c, err := sqlite.NewSQLiteCache(cfg.SQLite, logger)
		if err != nil {
			return nil, noop, errors.Wrap(err, "sqlite cache")
		}
		return c, c.Close, nil
	default:
		return nil, noop, errors.Newf("unknown cache type %q", cfg.Type)
	}
}
