package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/database"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// PermissionCache keeps per-role permission sets in Redis as JSON. A role
// with no configured set is cached as JSON null so misses stay cheap too.
//
// Entries are keyed by a generation counter. Invalidate bumps the counter,
// so a reader that loaded storage before an update can only write under
// the old generation, which no later read looks at.
type PermissionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPermissionCache creates a PermissionCache.
func NewPermissionCache(rdb *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{rdb: rdb, ttl: ttl}
}

// Generation returns the current cache generation. It must be read before
// the storage read whose result is passed to Set.
func (c *PermissionCache) Generation(ctx context.Context) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	gen, err := c.rdb.Get(ctx, config.CacheKey.PermissionGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the set cached for role under gen and whether the key was present.
func (c *PermissionCache) Get(ctx context.Context, gen int64, role model.Role) (*model.PermissionSet, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, config.CacheKey.RolePermissionsKey(gen, role)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var set *model.PermissionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Set stores set (possibly nil) for role under gen.
func (c *PermissionCache) Set(ctx context.Context, gen int64, role model.Role, set *model.PermissionSet) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.RolePermissionsKey(gen, role), raw, c.ttl).Err()
}

// Invalidate moves the cache to a new generation and drops the entries it
// can see. Writes still in flight for an older generation are never read.
func (c *PermissionCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Incr(ctx, config.CacheKey.PermissionGenerationKey()).Err(); err != nil {
		return err
	}
	_, err := database.DeleteByPattern(ctx, c.rdb, config.CacheKey.RolePermissionsPattern())
	return err
}
